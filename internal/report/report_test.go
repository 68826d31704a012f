package report

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReductionPercent(t *testing.T) {
	tests := []struct {
		name        string
		original    int
		summary     int
		want        int
		wantDefined bool
	}{
		{"three quarters shorter", 100, 25, 75, true},
		{"truncates toward zero", 3, 1, 66, true},
		{"no reduction", 10, 10, 0, true},
		{"empty summary", 40, 0, 100, true},
		{"summary longer than original", 10, 15, -50, true},
		{"empty original", 0, 0, 0, false},
		{"empty original with summary", 0, 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, defined := ReductionPercent(tt.original, tt.summary)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDefined, defined)
		})
	}
}

func TestCompute(t *testing.T) {
	m := Compute("one two three four five six seven eight", "one two", 1234*time.Millisecond)

	assert.Equal(t, 8, m.OriginalWords)
	assert.Equal(t, 2, m.SummaryWords)
	assert.Equal(t, 75, m.ReductionPercent)
	assert.True(t, m.ReductionDefined)
	assert.Equal(t, 1.23, m.ElapsedSeconds)
}

func TestComputeEmptyOriginal(t *testing.T) {
	m := Compute("   ", "", time.Second)

	assert.Equal(t, 0, m.OriginalWords)
	assert.False(t, m.ReductionDefined)
	assert.Contains(t, m.String(), "n/a reduction")
}

func TestMetricsString(t *testing.T) {
	m := Metrics{OriginalWords: 200, SummaryWords: 50, ReductionPercent: 75, ReductionDefined: true, ElapsedSeconds: 2.5}
	want := "Original length: 200 words\nSummary length: 50 words (75% reduction)\nProcessing time: 2.50 seconds"
	assert.Equal(t, want, m.String())
}

func TestArtifactFileName(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.UTC)

	assert.Equal(t, "summary_20240307_090503.txt", ArtifactFileName(PrefixSummary, ts))
	assert.Equal(t, "extracted_text_20240307_090503.txt", ArtifactFileName(PrefixExtractedText, ts))

	pattern := regexp.MustCompile(`^summary_\d{8}_\d{6}\.txt$`)
	assert.Regexp(t, pattern, ArtifactFileName(PrefixSummary, time.Now()))
}

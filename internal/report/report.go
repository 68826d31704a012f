// Package report computes the figures shown next to a summary and names the
// downloadable artifacts.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/localrivet/protext/internal/chunker"
)

// TimestampLayout formats artifact timestamps as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// Artifact name prefixes.
const (
	PrefixSummary       = "summary"
	PrefixExtractedText = "extracted_text"
)

// Metrics describes one completed summarization.
type Metrics struct {
	OriginalWords    int           `json:"original_words" yaml:"original_words"`
	SummaryWords     int           `json:"summary_words" yaml:"summary_words"`
	ReductionPercent int           `json:"reduction_percent" yaml:"reduction_percent"`
	ReductionDefined bool          `json:"reduction_defined" yaml:"reduction_defined"`
	Elapsed          time.Duration `json:"-" yaml:"-"`
	ElapsedSeconds   float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

// Compute builds the metrics for original and summary.
func Compute(original, summary string, elapsed time.Duration) Metrics {
	o := chunker.WordCount(original)
	s := chunker.WordCount(summary)
	reduction, defined := ReductionPercent(o, s)

	return Metrics{
		OriginalWords:    o,
		SummaryWords:     s,
		ReductionPercent: reduction,
		ReductionDefined: defined,
		Elapsed:          elapsed,
		ElapsedSeconds:   RoundSeconds(elapsed),
	}
}

// ReductionPercent returns int((1 - summaryWords/originalWords) * 100),
// truncated toward zero. It reports false, with 0, when originalWords is 0.
// A summary longer than the original gives a negative value.
func ReductionPercent(originalWords, summaryWords int) (int, bool) {
	if originalWords <= 0 {
		return 0, false
	}
	ratio := float64(summaryWords) / float64(originalWords)
	return int((1 - ratio) * 100), true
}

// RoundSeconds returns d in seconds rounded to two decimals.
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// String renders the metrics the way they are shown to users.
func (m Metrics) String() string {
	reduction := "n/a"
	if m.ReductionDefined {
		reduction = fmt.Sprintf("%d%%", m.ReductionPercent)
	}
	return fmt.Sprintf("Original length: %d words\nSummary length: %d words (%s reduction)\nProcessing time: %.2f seconds",
		m.OriginalWords, m.SummaryWords, reduction, m.ElapsedSeconds)
}

// ArtifactFileName returns "<prefix>_YYYYMMDD_HHMMSS.txt" for t.
func ArtifactFileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.txt", prefix, t.Format(TimestampLayout))
}

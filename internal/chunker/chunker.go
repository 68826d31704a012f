// Package chunker splits long text into model-sized pieces at sentence boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkChars is the default maximum number of characters per chunk.
const DefaultMaxChunkChars = 500

// sentenceDelimiter is the heuristic sentence boundary. Abbreviations,
// decimals and other terminators are not recognised.
const sentenceDelimiter = ". "

// Split normalises newlines to spaces, breaks the text on ". " and greedily
// packs the resulting units into chunks of at most maxChunkChars characters.
// A unit longer than maxChunkChars becomes its own oversized chunk.
//
// Every unit, blank ones included, is re-terminated with ". ", so the result
// always holds at least one element; empty input yields ".".
func Split(text string, maxChunkChars int) []string {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}

	normalized := strings.ReplaceAll(text, "\n", " ")
	units := strings.Split(normalized, sentenceDelimiter)

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if currentLen+unitLen > maxChunkChars && currentLen > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}

		current.WriteString(unit)
		current.WriteString(sentenceDelimiter)
		currentLen += unitLen + len(sentenceDelimiter)
	}

	// The trailing chunk is always emitted.
	return append(chunks, strings.TrimSpace(current.String()))
}

// WordCount returns the number of whitespace-delimited words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

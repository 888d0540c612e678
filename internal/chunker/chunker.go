package chunker

import "strings"

const (
	// DefaultMaxLen is the default window length in characters
	DefaultMaxLen = 1000

	// DefaultOverlap is the default number of characters shared by adjacent windows
	DefaultOverlap = 100
)

// Chunker splits normalized text into overlapping fixed-length windows
type Chunker struct {
	maxLen  int
	overlap int
}

// New creates a chunker with the given window length and overlap.
// Non-positive maxLen falls back to DefaultMaxLen; an overlap that would stop
// the window from advancing is reduced to maxLen-1.
func New(maxLen, overlap int) *Chunker {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxLen {
		overlap = maxLen - 1
	}
	return &Chunker{maxLen: maxLen, overlap: overlap}
}

// MaxLen returns the configured window length
func (c *Chunker) MaxLen() int { return c.maxLen }

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text using the configured sizes
func (c *Chunker) Chunk(text string) []string {
	return Chunk(text, c.maxLen, c.overlap)
}

// Normalize collapses every whitespace run into a single space and trims both ends
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Chunk normalizes text and emits windows of up to maxLen characters, each
// starting maxLen-overlap characters after the previous one. The last window
// ends exactly at the end of the text. Lengths are counted in runes.
func Chunk(text string, maxLen, overlap int) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(normalized)
	n := len(runes)

	var chunks []string
	start := 0
	for start < n {
		end := start + maxLen
		if end > n {
			end = n
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, piece)
		}
		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			// overlap >= maxLen would never advance
			next = start + 1
		}
		start = next
	}

	return chunks
}

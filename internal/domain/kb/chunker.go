package kb

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits page text into overlapping chunks by trying progressively
// finer separators: paragraph breaks, newlines, spaces, then hard cuts.
type Chunker struct {
	chunkSize int
	overlap   int
}

var chunkSeparators = []string{"\n\n", "\n", " ", ""}

func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into chunks of at most chunkSize runes with the configured
// overlap between consecutive chunks. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	pieces := c.split(text, 0)

	// Merge small pieces back together up to chunkSize, carrying overlap.
	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		currentLen := utf8.RuneCountInString(current.String())

		if currentLen > 0 && currentLen+pieceLen+1 > c.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			tail := tailRunes(current.String(), c.overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString("\n")
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(piece)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// split recursively divides text with separator sepIdx until every piece fits.
func (c *Chunker) split(text string, sepIdx int) []string {
	if utf8.RuneCountInString(text) <= c.chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{strings.TrimSpace(text)}
	}

	if sepIdx >= len(chunkSeparators) {
		return c.hardCut(text)
	}

	sep := chunkSeparators[sepIdx]
	if sep == "" {
		return c.hardCut(text)
	}

	var pieces []string
	for _, part := range strings.Split(text, sep) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pieces = append(pieces, c.split(part, sepIdx+1)...)
	}
	return pieces
}

// hardCut slices oversized text at rune boundaries, keeping the overlap.
func (c *Chunker) hardCut(text string) []string {
	runes := []rune(text)
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}

	var pieces []string
	for i := 0; i < len(runes); i += step {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
		if end >= len(runes) {
			break
		}
	}
	return pieces
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

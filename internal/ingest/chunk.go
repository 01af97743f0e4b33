package ingest

import (
	"regexp"
	"strings"
)

// Chunker splits transcript text into overlapping, sentence-aligned pieces.
// Size and Overlap are measured in characters; sentences are never cut.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker creates a Chunker. A non-positive size falls back to 800, a
// negative overlap to 0.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return Chunker{Size: size, Overlap: overlap}
}

var sentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// splitSentences cuts text after terminal punctuation. Text without any is
// returned whole.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// Split packs sentences into chunks of at most Size characters, carrying
// the trailing sentences of each chunk (up to Overlap characters) into the
// next one. A single sentence longer than Size becomes its own chunk.
func (c Chunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	appendChunk := func() {
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences within the overlap.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			n := len(current[i])
			if carryLen+n > c.Overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += n + 1
		}
		current = carry
		currentLen = carryLen
	}

	for _, sentence := range sentences {
		if currentLen > 0 && currentLen+len(sentence) > c.Size {
			appendChunk()
			// The carry alone may already exceed the budget for this
			// sentence; drop it rather than emit an oversized chunk.
			if currentLen > 0 && currentLen+len(sentence) > c.Size {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// Package textsplit chunks long documents for embedding. It splits on the
// most coarse-grained separator present (section, paragraph, line, sentence,
// clause, word, character) and greedily re-merges pieces into chunks of a
// fixed size with a small overlap, so a chunk never ends mid-word unless the
// text contains no better boundary.
package textsplit

import "strings"

// Default separators, coarsest first. The terminal "" splits by character.
var defaultSeparators = []string{"\n\n\n", "\n\n", "\n", ".", "!", "?", ";", ",", " ", ""}

// Splitter produces overlapping chunks of at most ChunkSize characters.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New creates a splitter. Chunk size must exceed the overlap.
func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 20000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split breaks text into chunks. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the coarsest separator that actually occurs in the text.
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge greedily joins pieces up to the chunk size, carrying the tail of the
// previous chunk into the next one as overlap.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := len(separator)

	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+len(piece)+extra > s.chunkSize && len(current) > 0 {
			if chunk := join(current, separator); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Drop leading pieces until the retained tail fits within the
			// overlap and leaves room for the next piece.
			for total > s.chunkOverlap ||
				(total+len(piece)+extra > s.chunkSize && total > 0) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
				if len(current) == 0 {
					break
				}
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += len(piece)
	}

	if chunk := join(current, separator); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = strings.Split(text, "")
	} else {
		parts = strings.Split(text, separator)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func join(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

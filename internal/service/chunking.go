package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkConfig controls chunking for knowledge embeddings. Sizes are measured
// in runes, not bytes.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    800,
		Overlap: 100,
	}
}

// chunkText splits text into overlapping, sentence-respecting chunks.
// Sentences are accumulated greedily; when the next sentence would push the
// buffer past cfg.Size the buffer is emitted and the next one is seeded with
// the trailing cfg.Overlap runes of it. No emitted chunk exceeds
// cfg.Size+cfg.Overlap runes. Pure function: same input, same output.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 8
	}

	if utf8.RuneCountInString(clean) <= cfg.Size {
		return []string{clean}
	}

	var sentences []string
	for _, s := range splitSentences(clean) {
		sentences = append(sentences, splitOversized(s, cfg.Size)...)
	}

	chunks := make([]string, 0, 8)
	var buf []rune
	for _, s := range sentences {
		next := []rune(s)

		if len(buf) > 0 && len(buf)+1+len(next) > cfg.Size {
			chunks = append(chunks, strings.TrimSpace(string(buf)))

			tail := buf
			if len(tail) > cfg.Overlap {
				tail = tail[len(tail)-cfg.Overlap:]
			}
			// The seed is raw trailing context; the next sentence is
			// concatenated directly onto it.
			buf = append(append(make([]rune, 0, len(tail)+len(next)), tail...), next...)
			continue
		}

		if len(buf) > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, next...)
	}

	if last := strings.TrimSpace(string(buf)); last != "" {
		chunks = append(chunks, last)
	}

	return chunks
}

// splitSentences breaks text after runs of terminal punctuation (., !, ?)
// followed by whitespace or end of input. Input without any terminal
// punctuation is returned as a single sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 16)

	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceTerminal(runes[i]) {
			continue
		}

		end := i
		for end+1 < len(runes) && isSentenceTerminal(runes[end+1]) {
			end++
		}

		if end+1 >= len(runes) || unicode.IsSpace(runes[end+1]) {
			if s := strings.TrimSpace(string(runes[start : end+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = end + 1
		}
		i = end
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitOversized hard-splits a single sentence longer than size runes into
// size-rune pieces, keeping the emitted-chunk bound intact.
func splitOversized(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}

	parts := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

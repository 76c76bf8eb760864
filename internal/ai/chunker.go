package ai

import "strings"

const DefaultChunkWords = 300

// SplitWords splits text into order-preserving chunks of at most size words.
// Runs of whitespace collapse to single spaces, words are never split, and
// the final chunk may be shorter. Empty or whitespace-only input yields nil.
func SplitWords(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

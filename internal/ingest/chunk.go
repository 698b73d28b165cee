package ingest

import "github.com/recallhq/recall/internal/types"

// DefaultChunkSize is the chunk bound in characters.
const DefaultChunkSize = 800

// SplitChunks cuts text into fixed-size chunks of n characters; the last
// chunk may be shorter. No overlap, no loss: concatenating the chunks in
// index order reproduces text exactly. Characters are runes, so a
// multi-byte character is never split across chunks.
func SplitChunks(docID, text string, n int) []types.Chunk {
	if n <= 0 {
		n = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	out := make([]types.Chunk, 0, (len(runes)+n-1)/n)
	for i := 0; i < len(runes); i += n {
		end := i + n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, types.Chunk{
			DocID: docID,
			Index: len(out),
			Text:  string(runes[i:end]),
		})
	}
	return out
}

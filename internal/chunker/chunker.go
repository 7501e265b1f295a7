package chunker

import (
	"strings"

	"docchat/pkg/types"
)

const (
	// DefaultChunkSize is the target maximum character count per chunk.
	DefaultChunkSize = 512

	// MinParagraphLen drops paragraphs below this many characters; very
	// short fragments carry no retrievable content.
	MinParagraphLen = 10

	// OverlapTokens is the number of trailing whitespace-delimited
	// tokens carried from one chunk into the next. The overlap is
	// lexical, not token-accurate.
	OverlapTokens = 5
)

// Chunker splits normalized document text into overlapping chunks at
// paragraph boundaries.
type Chunker struct {
	chunkSize int
}

// New creates a Chunker with the given chunk size in characters.
func New(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// Chunk splits text into chunks. Paragraphs (double-newline separated)
// accumulate until adding the next would exceed the chunk size, at
// which point the accumulated chunk is emitted and a new one starts.
// Every chunk after the first is prefixed with the last few tokens of
// its predecessor. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []types.Chunk {
	var pieces []string
	var current string

	for _, para := range strings.Split(text, "\n\n") {
		if len(strings.TrimSpace(para)) < MinParagraphLen {
			continue
		}
		switch {
		case len(current)+len(para) > c.chunkSize:
			if strings.TrimSpace(current) != "" {
				pieces = append(pieces, strings.TrimSpace(current))
			}
			current = para
		case current == "":
			current = para
		default:
			current += "\n\n" + para
		}
	}
	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, strings.TrimSpace(current))
	}

	chunks := make([]types.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		if i > 0 {
			piece = overlapPrefix(pieces[i-1]) + " " + piece
		}
		chunks = append(chunks, types.Chunk{
			Content:  piece,
			Sequence: i,
			Length:   len(piece),
		})
	}
	return chunks
}

// overlapPrefix returns the last OverlapTokens tokens of the previous
// chunk, joined with single spaces.
func overlapPrefix(prev string) string {
	words := strings.Fields(prev)
	if len(words) > OverlapTokens {
		words = words[len(words)-OverlapTokens:]
	}
	return strings.Join(words, " ")
}

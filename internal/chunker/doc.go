// Package chunker divides document text into overlapping chunks for
// embedding and retrieval.
//
// Splitting happens at paragraph boundaries (double newline). A running
// chunk accumulates paragraphs until appending the next would exceed
// the configured chunk size; the accumulated chunk is then emitted and
// a new one starts with that paragraph. After splitting, each chunk
// except the first is prefixed with the last ~5 tokens of its
// predecessor so adjacent chunks share lexical context.
//
//	c := chunker.New(512)
//	chunks := c.Chunk(documentText)
//	for _, ch := range chunks {
//	    fmt.Printf("chunk %d: %d chars\n", ch.Sequence, ch.Length)
//	}
//
// Chunking is pure: no side effects, and calling Chunk twice on the
// same input produces the same output.
package chunker

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telltale-labs/fathom/pkg/model"
)

func TestChunkMergesParagraphsUpToLimit(t *testing.T) {
	c := NewChunkerWithOptions(ChunkerOptions{MaxChunkSize: 40})

	content := "first paragraph here\n\nsecond one\n\n" + strings.Repeat("x", 50)
	chunks := c.Chunk("doc.txt", content, nil)
	require.Len(t, chunks, 2)

	assert.Equal(t, "first paragraph here\n\nsecond one", chunks[0].Content)
	assert.Equal(t, strings.Repeat("x", 50), chunks[1].Content, "an oversized paragraph still becomes one chunk")

	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.ID)
		assert.Equal(t, "doc.txt", chunk.DocumentID)
	}
}

func TestChunkOffsets(t *testing.T) {
	c := NewChunkerWithOptions(ChunkerOptions{MaxChunkSize: 10})

	content := "alpha beta\n\ngamma delta"
	chunks := c.Chunk("doc.txt", content, nil)
	require.Len(t, chunks, 2)

	for _, chunk := range chunks {
		assert.Equal(t, chunk.Content, content[chunk.StartIndex:chunk.EndIndex])
	}
}

func TestChunkEmptyContent(t *testing.T) {
	c := NewChunker()

	assert.Nil(t, c.Chunk("doc.txt", "", nil))
	assert.Nil(t, c.Chunk("doc.txt", "   \n\n  \n", nil))
}

func TestChunkClonesMetadata(t *testing.T) {
	c := NewChunker()
	meta := model.Metadata{"ext": model.String(".txt")}

	chunks := c.Chunk("doc.txt", "one\n\ntwo", meta)
	require.NotEmpty(t, chunks)

	chunks[0].Metadata["ext"] = model.String(".md")
	assert.True(t, meta["ext"].Equal(model.String(".txt")), "chunk metadata must not alias the input map")
}

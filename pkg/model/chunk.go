// Package model defines the data types shared by the retrieval engine:
// chunks, metadata, and search results. Chunks are the atomic unit of
// indexing and retrieval; stores and indexes hold shared references to
// them rather than copies.
package model

import "github.com/google/uuid"

// Chunk represents a retrievable unit of text produced by an upstream
// chunking step. The retrieval engine treats chunks as immutable; only
// Embedding is populated (by an embedding collaborator) before the chunk
// enters a store.
type Chunk struct {
	// ID uniquely identifies the chunk. Generated via EnsureID if empty.
	ID string

	// Content is the text body that gets tokenized and embedded.
	Content string

	// DocumentID is a back-reference to the source document.
	DocumentID string

	// Metadata carries scalar key/value pairs used for filtered search.
	Metadata Metadata

	// StartIndex and EndIndex are character offsets into the source
	// document. Informational only; never interpreted by the engine.
	StartIndex int
	EndIndex   int

	// Embedding is the dense vector for this chunk. Nil until an
	// embedding step populates it.
	Embedding []float32

	// ParentID optionally references an enclosing chunk for hierarchical
	// chunking schemes. Never dereferenced by the engine.
	ParentID string
}

// EnsureID assigns a random UUID if the chunk has no ID yet and returns
// the chunk's ID.
func (c *Chunk) EnsureID() string {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c.ID
}

// HasEmbedding reports whether an embedding has been populated.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

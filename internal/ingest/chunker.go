// Package ingest loads plain-text documents from disk and splits them
// into chunks suitable for indexing.
package ingest

import (
	"strings"

	"github.com/telltale-labs/fathom/pkg/model"
)

// DefaultMaxChunkSize is the paragraph merge ceiling in characters.
const DefaultMaxChunkSize = 1200

// ChunkerOptions configures paragraph chunking.
type ChunkerOptions struct {
	// MaxChunkSize is the maximum chunk length in characters. Adjacent
	// paragraphs are merged up to this ceiling; a single paragraph
	// longer than it becomes its own chunk.
	MaxChunkSize int
}

// Chunker splits document text on blank lines and merges adjacent
// paragraphs into chunks.
type Chunker struct {
	options ChunkerOptions
}

// NewChunker creates a chunker with default options.
func NewChunker() *Chunker {
	return NewChunkerWithOptions(ChunkerOptions{})
}

// NewChunkerWithOptions creates a chunker with custom options.
func NewChunkerWithOptions(opts ChunkerOptions) *Chunker {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	return &Chunker{options: opts}
}

// Chunk splits content into chunks for the given document. StartIndex
// and EndIndex are byte offsets into the original content. Whitespace-only
// content yields no chunks.
func (c *Chunker) Chunk(documentID, content string, metadata model.Metadata) []*model.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	paras := splitParagraphs(content)

	var chunks []*model.Chunk
	var (
		start = -1
		end   int
		text  strings.Builder
	)

	flush := func() {
		if start < 0 {
			return
		}
		chunk := &model.Chunk{
			Content:    text.String(),
			DocumentID: documentID,
			Metadata:   metadata.Clone(),
			StartIndex: start,
			EndIndex:   end,
		}
		chunk.EnsureID()
		chunks = append(chunks, chunk)
		start = -1
		text.Reset()
	}

	for _, p := range paras {
		if start >= 0 && text.Len()+len(p.text)+2 > c.options.MaxChunkSize {
			flush()
		}
		if start < 0 {
			start = p.start
		} else {
			text.WriteString("\n\n")
		}
		text.WriteString(p.text)
		end = p.end
	}
	flush()

	return chunks
}

type paragraph struct {
	text  string
	start int
	end   int
}

// splitParagraphs finds runs of non-blank lines and their byte offsets.
func splitParagraphs(content string) []paragraph {
	var paras []paragraph
	offset := 0
	for _, block := range strings.Split(content, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			lead := strings.Index(block, trimmed)
			start := offset + lead
			paras = append(paras, paragraph{
				text:  trimmed,
				start: start,
				end:   start + len(trimmed),
			})
		}
		offset += len(block) + 2
	}
	return paras
}

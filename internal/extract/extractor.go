package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/document/parser"
)

var (
	// ErrUnreadable means the document could not be parsed at all.
	ErrUnreadable = errors.New("document could not be read")
	// ErrNoText means parsing succeeded but yielded only whitespace.
	ErrNoText = errors.New("no text could be extracted from the document")
)

// Extractor turns uploaded document bytes into plain text, picking a parser by file extension.
type Extractor struct {
	parser parser.Parser
}

// NewExtractor registers the PDF parser for the .pdf extension.
func NewExtractor(ctx context.Context) (*Extractor, error) {
	ext, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".pdf": PDFParser{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init parser: %w", err)
	}
	return &Extractor{parser: ext}, nil
}

// Extract returns the text of the document named filename.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	docs, err := e.parser.Parse(ctx, bytes.NewReader(data), parser.WithURI(strings.ToLower(filename)))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			parts = append(parts, doc.Content)
		}
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/ledongthuc/pdf"
)

// MetaPageCount is set on parsed documents to the number of pages in the source file.
const MetaPageCount = "page_count"

// PDFParser is an eino document parser for application/pdf.
// Each page's plain text is extracted in order and joined with newlines; pages that fail are skipped.
type PDFParser struct{}

var _ parser.Parser = PDFParser{}

func (PDFParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) (docs []*schema.Document, err error) {
	options := parser.GetCommonOptions(&parser.Options{}, opts...)

	var ra io.ReaderAt
	var size int64
	switch r := reader.(type) {
	case *bytes.Reader:
		ra, size = r, r.Size()
	default:
		buf, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read pdf: %w", err)
		}
		br := bytes.NewReader(buf)
		ra, size = br, br.Size()
	}

	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	rdr, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := rdr.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		txt, ok := pageText(rdr, i)
		if !ok {
			continue
		}
		pages = append(pages, txt)
	}

	meta := map[string]any{MetaPageCount: n}
	for k, v := range options.ExtraMeta {
		meta[k] = v
	}
	return []*schema.Document{{
		ID:       options.URI,
		Content:  strings.Join(pages, "\n"),
		MetaData: meta,
	}}, nil
}

func pageText(rdr *pdf.Reader, i int) (txt string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			txt, ok = "", false
		}
	}()
	pg := rdr.Page(i)
	if pg.V.IsNull() {
		return "", false
	}
	txt, err := pg.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return txt, true
}

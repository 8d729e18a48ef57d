// Package extractor adapts the external PDF-to-tabular-data service behind
// a single interface, so an HTTP-backed implementation and a
// subprocess-backed implementation are interchangeable. Each file is
// extracted with per-file error isolation and a context-enforced timeout.
package extractor

import (
	"context"
)

// PDFInput is one PDF payload submitted for extraction.
type PDFInput struct {
	Filename string
	Bytes    []byte
}

// ExcelArtifact is the extractor's optional auxiliary spreadsheet output —
// a financial-statement attachment the extractor chose to emit alongside
// the transaction table.
type ExcelArtifact struct {
	Name string
	Size int64
	Mime string
	Data []byte
}

// PDFResult is one file's extraction outcome: either Transactions is
// populated (possibly empty, e.g. the "no credit rows found" case) or Error
// is set — never both.
type PDFResult struct {
	SourceFile   string
	Metadata     map[string]interface{}
	Transactions []map[string]interface{}
	Excel        *ExcelArtifact
	Error        string
}

// Extractor is the single contract the orchestrator depends on. Both the
// HTTP and subprocess implementations satisfy it; the orchestrator never
// branches on which one is configured.
type Extractor interface {
	Extract(ctx context.Context, inputs []PDFInput) []PDFResult
}

const noCreditRowsMarker = "no credit rows found"

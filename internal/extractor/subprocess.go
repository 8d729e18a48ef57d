package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// SubprocessExtractor execs a local binary per file, feeding the PDF on
// stdin and recovering the JSON block from its (possibly log-interleaved)
// stdout — the same recovery logic as HTTPExtractor, so both
// implementations are interchangeable behind the Extractor interface.
type SubprocessExtractor struct {
	path    string
	timeout time.Duration
}

// NewSubprocessExtractor builds a SubprocessExtractor invoking the binary
// at path.
func NewSubprocessExtractor(path string, timeout time.Duration) *SubprocessExtractor {
	return &SubprocessExtractor{path: path, timeout: timeout}
}

// Extract implements Extractor.
func (e *SubprocessExtractor) Extract(ctx context.Context, inputs []PDFInput) []PDFResult {
	results := make([]PDFResult, len(inputs))
	for i, in := range inputs {
		results[i] = e.extractOne(ctx, in)
	}
	return results
}

func (e *SubprocessExtractor) extractOne(ctx context.Context, in PDFInput) PDFResult {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, e.path, in.Filename)
	cmd.Stdin = bytes.NewReader(in.Bytes)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	combined := stdout.String() + "\n" + stderr.String()

	if isNoCreditRowsMarker(combined) {
		return PDFResult{SourceFile: in.Filename, Transactions: []map[string]interface{}{}}
	}

	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("extractor process exited with error: %v", err)}
		}
		return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("failed to run extractor: %v", err)}
	}

	return parseExtractorOutput(in.Filename, stdout.String())
}

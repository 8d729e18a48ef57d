package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/resilience"
	"CimplrCorpSaas/pkg/loadbalancer"
)

// HTTPExtractor calls one or more HTTP PDF-extraction endpoints, round
// robin across them via pkg/loadbalancer when more than one is configured:
// multipart POST, JSON response, "status":"error" handling, bounded by a
// context.WithTimeout per-file budget. Network-level failures (not
// extractor-reported errors) are retried with
// internal/resilience.RetryWithBackoff and guarded by a CircuitBreaker so a
// down extractor fails fast across a batch instead of exhausting every
// file's timeout budget one by one.
type HTTPExtractor struct {
	balancer *loadbalancer.LoadBalancer
	timeout  time.Duration
	client   *http.Client
	breaker  *resilience.CircuitBreaker
}

// NewHTTPExtractor builds an HTTPExtractor rotating across urls.
func NewHTTPExtractor(urls []string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		balancer: loadbalancer.NewLoadBalancer(urls),
		timeout:  timeout,
		client:   &http.Client{},
		breaker:  resilience.NewCircuitBreaker(5, 30*time.Second),
	}
}

// Extract implements Extractor. Each file is isolated: a failure calling or
// parsing one file's response never aborts the rest of the batch.
func (e *HTTPExtractor) Extract(ctx context.Context, inputs []PDFInput) []PDFResult {
	results := make([]PDFResult, len(inputs))
	for i, in := range inputs {
		results[i] = e.extractOne(ctx, in)
	}
	return results
}

func (e *HTTPExtractor) extractOne(ctx context.Context, in PDFInput) PDFResult {
	target := e.balancer.NextTarget()
	if target == "" {
		return PDFResult{SourceFile: in.Filename, Error: "no PDF extractor endpoint configured"}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("pdf", in.Filename)
	if err != nil {
		return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("failed to build request: %v", err)}
	}
	if _, err := fw.Write(in.Bytes); err != nil {
		return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("failed to write payload: %v", err)}
	}
	if err := mw.Close(); err != nil {
		return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("failed to close request: %v", err)}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, target, &body)
	if err != nil {
		return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw []byte
	var statusCode int
	callErr := e.breaker.Execute(func() error {
		return resilience.RetryWithBackoff(callCtx, 2, 200*time.Millisecond, func() error {
			resp, err := e.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			statusCode = resp.StatusCode
			raw = body
			return nil
		})
	})
	if callErr != nil {
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("extractor call failed for %s: %v", in.Filename, callErr))
		}
		return PDFResult{SourceFile: in.Filename, Error: fmt.Sprintf("extractor unreachable: %v", callErr)}
	}
	if statusCode == http.StatusNoContent {
		return PDFResult{SourceFile: in.Filename, Transactions: []map[string]interface{}{}}
	}

	return parseExtractorOutput(in.Filename, string(raw))
}

// parseExtractorOutput recovers the JSON block from a possibly log-prefixed
// response body and maps it onto PDFResult, shared by both the HTTP and
// subprocess implementations.
func parseExtractorOutput(filename, raw string) PDFResult {
	if isNoCreditRowsMarker(raw) {
		return PDFResult{SourceFile: filename, Transactions: []map[string]interface{}{}}
	}

	block, ok := recoverJSONBlock(raw)
	if !ok {
		return PDFResult{SourceFile: filename, Error: "extractor returned no parseable JSON"}
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return PDFResult{SourceFile: filename, Error: fmt.Sprintf("failed to parse extractor response: %v", err)}
	}

	if status, ok := parsed["status"].(string); ok && status == "error" {
		msg := "unknown extractor error"
		if e, ok := parsed["error"].(string); ok && e != "" {
			msg = e
		}
		return PDFResult{SourceFile: filename, Error: msg}
	}
	if errMsg, ok := parsed["error"].(string); ok && errMsg != "" {
		return PDFResult{SourceFile: filename, Error: errMsg}
	}

	result := PDFResult{SourceFile: filename}
	if meta, ok := parsed["metadata"].(map[string]interface{}); ok {
		result.Metadata = meta
	}

	transactions := []map[string]interface{}{}
	if txns, ok := parsed["transactions"].([]interface{}); ok {
		for _, t := range txns {
			if tm, ok := t.(map[string]interface{}); ok {
				transactions = append(transactions, tm)
			}
		}
	}
	result.Transactions = transactions

	if excel, ok := parsed["excel_file"].(map[string]interface{}); ok {
		artifact := &ExcelArtifact{}
		if name, ok := excel["name"].(string); ok {
			artifact.Name = name
		}
		if mime, ok := excel["mime"].(string); ok {
			artifact.Mime = mime
		}
		if size, ok := excel["size"].(float64); ok {
			artifact.Size = int64(size)
		}
		result.Excel = artifact
	}

	return result
}

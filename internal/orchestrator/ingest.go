package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"CimplrCorpSaas/internal/extractor"
	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/model"
	"CimplrCorpSaas/internal/normalize"
)

// financialExtensions are non-PDF formats that land in the `financial`
// bucket without ever reaching the extractor: spreadsheets, images, and
// archives a human later reviews out of band.
var financialExtensions = map[string]bool{
	".xlsx": true, ".xls": true, ".zip": true,
	".png": true, ".jpg": true, ".jpeg": true,
}

// taxMarkers flag a PDF filename as a tax document rather than a bank
// statement, independent of the extraction pipeline.
var taxMarkers = []string{"налог", "ндс", "tax", "vat", "декларация"}

func isPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// categorizeFile assigns one of the closed categories to an uploaded file by
// name alone (its extension); the mime type is not consulted, matching how
// the rest of the pipeline already keys off filename.
func categorizeFile(name string) model.FileCategory {
	ext := strings.ToLower(filepath.Ext(name))
	if financialExtensions[ext] {
		return model.CategoryFinancial
	}
	if ext == ".pdf" {
		lower := strings.ToLower(name)
		for _, marker := range taxMarkers {
			if strings.Contains(lower, marker) {
				return model.CategoryTaxes
			}
		}
		return model.CategoryStatements
	}
	return model.CategoryUncategorized
}

var (
	amountKeys = []string{
		"amount", "сумма", "сумма операции", "sum", "value", "credit", "кредит",
	}
	purposeKeys = []string{
		"purpose", "назначение", "назначение платежа", "comment", "описание",
		"description", "назначение_платежа",
	}
	senderKeys = []string{
		"sender", "отправитель", "плательщик", "payer", "from", "sender_name",
	}
	correspondentKeys = []string{
		"correspondent", "контрагент", "получатель", "payee", "beneficiary",
		"correspondent_name",
	}
	binKeys = []string{
		"bin", "бин", "иин", "inn",
	}
)

// buildTransaction maps one extractor-returned record onto a canonical
// Transaction, running every string/amount/date field through the Value
// Normalizer before anything downstream sees it.
func buildTransaction(sessionID string, index int, sourceFile string, rec map[string]interface{}) model.Transaction {
	record := normalize.Record(rec)

	rawAmount, _ := normalize.ExtractString(record, amountKeys...)
	parsedAmount := normalize.ParseAmount(firstNonEmpty(rec, amountKeys))

	purpose, _ := normalize.ExtractString(record, purposeKeys...)
	sender, _ := normalize.ExtractString(record, senderKeys...)
	correspondent, _ := normalize.ExtractString(record, correspondentKeys...)
	bin, _ := normalize.ExtractString(record, binKeys...)

	txn := model.Transaction{
		InternalID:    internalID(sessionID, index),
		RawAmount:     rawAmount,
		ParsedAmount:  parsedAmount,
		Purpose:       purpose,
		Sender:        sender,
		Correspondent: correspondent,
		BIN:           bin,
		SourceFile:    sourceFile,
	}
	if d, ok := normalize.ExtractDate(rec); ok {
		txn.ValueDate = &d
	}
	return txn
}

func internalID(sessionID string, index int) string {
	return sessionID + "_" + strconv.Itoa(index)
}

// firstNonEmpty returns the raw (untyped) value behind the first matching
// key, for ParseAmount — which accepts string or numeric raw input directly
// rather than the pre-stringified form ExtractString produces.
func firstNonEmpty(rec map[string]interface{}, keys []string) interface{} {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			return v
		}
		lower := strings.ToLower(key)
		for k, v := range rec {
			if strings.ToLower(k) == lower {
				return v
			}
		}
	}
	return nil
}

// ingest implements the Ingest step: partition files, categorize and record
// every one of them, hand the PDFs to the extractor, and return the
// canonicalized transactions it yields. A per-file extractor error is
// recorded as a warning and the batch continues; nothing here returns an
// error except what should fail the whole session outright (none, in the
// current design — extractor failures are always per-file).
func (o *Orchestrator) ingest(ctx context.Context, sessionID string, files []UploadedFile) ([]model.Transaction, error) {
	var (
		pdfInputs []extractor.PDFInput
		filesData []model.FilesDataEntry
	)

	for _, f := range files {
		category := categorizeFile(f.Name)
		externalID := checksumBytes(f.Data)

		if err := o.store.InsertFile(ctx, model.FileRecord{
			SessionID:      sessionID,
			ExternalFileID: externalID,
			OriginalName:   f.Name,
			Size:           int64(len(f.Data)),
			MimeType:       f.Mime,
			Category:       category,
			Checksum:       externalID,
		}); err != nil && logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: insert file failed for %s/%s: %v", sessionID, f.Name, err))
		}

		filesData = append(filesData, model.FilesDataEntry{
			Name:           f.Name,
			Size:           int64(len(f.Data)),
			MimeType:       f.Mime,
			Category:       string(category),
			ExternalFileID: externalID,
		})

		if isPDF(f.Name) {
			pdfInputs = append(pdfInputs, extractor.PDFInput{Filename: f.Name, Bytes: f.Data})
		}
	}

	if err := o.store.SetFilesData(ctx, sessionID, filesData); err != nil && logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: set files_data failed for %s: %v", sessionID, err))
	}

	if len(pdfInputs) == 0 || o.extractor == nil {
		return nil, nil
	}

	results := o.extractor.Extract(ctx, pdfInputs)

	var txns []model.Transaction
	index := 0
	for _, r := range results {
		if r.Error != "" {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: extractor error for %s/%s: %s", sessionID, r.SourceFile, r.Error))
			}
			continue
		}
		for _, rec := range r.Transactions {
			txns = append(txns, buildTransaction(sessionID, index, r.SourceFile, rec))
			index++
		}
		if r.Excel != nil {
			o.archiveExcelArtifact(ctx, sessionID, r.SourceFile, r.Excel)
		}
	}

	return txns, nil
}

// archiveExcelArtifact persists the extractor's optional spreadsheet
// attachment through the configured artifact store and records a File row
// with category converted-statement so it shows up alongside the original
// upload. Best-effort: a failure here never fails the session.
func (o *Orchestrator) archiveExcelArtifact(ctx context.Context, sessionID, sourceFile string, artifact *extractor.ExcelArtifact) {
	if sheets, err := excelSheetCount(artifact.Data); err != nil {
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: converted-statement artifact for %s/%s is not a readable workbook: %v", sessionID, sourceFile, err))
		}
	} else if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: converted-statement artifact for %s/%s has %d sheet(s)", sessionID, sourceFile, sheets))
	}

	var externalID string
	if o.artifacts != nil {
		id, err := o.artifacts.Put(ctx, sessionID, artifact.Name, artifact.Data)
		if err != nil {
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: archive excel artifact failed for %s: %v", sessionID, err))
			}
		} else {
			externalID = id
		}
	}

	if err := o.store.InsertFile(ctx, model.FileRecord{
		SessionID:      sessionID,
		ExternalFileID: externalID,
		OriginalName:   artifact.Name,
		Size:           artifact.Size,
		MimeType:       artifact.Mime,
		Category:       model.CategoryConvertedStatement,
	}); err != nil && logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: insert converted-statement file failed for %s: %v", sessionID, err))
	}
}

// excelSheetCount opens data as an in-memory workbook just long enough to
// confirm it's readable and count its sheets — a cheap validity check on
// the extractor's converted-statement artifact before it's archived.
func excelSheetCount(data []byte) (int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return len(f.GetSheetList()), nil
}

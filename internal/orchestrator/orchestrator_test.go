package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"CimplrCorpSaas/internal/extractor"
	"CimplrCorpSaas/internal/llmclassifier"
	"CimplrCorpSaas/internal/model"
	"CimplrCorpSaas/internal/sessionregistry"
	"CimplrCorpSaas/internal/store"
)

// fakeStore is a narrow in-memory stand-in for internal/store.Store,
// satisfying both orchestrator.Store and sessionregistry.MessageStore so a
// single fake drives an end-to-end Submit without a real database — the
// pack carries no SQL-mocking library, so tests against a store-shaped
// dependency use a hand-written interface seam instead.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	files    map[string][]model.FileRecord
	messages map[string][]model.Message
	reports  map[string]store.ReportUpsert
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*model.Session{},
		files:    map[string][]model.FileRecord{},
		messages: map[string][]model.Message{},
		reports:  map[string]store.ReportUpsert{},
	}
}

func (f *fakeStore) CreateGenerating(ctx context.Context, sessionID, comment string, metadata map[string]interface{}, filesCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = &model.Session{
		SessionID:  sessionID,
		Comment:    comment,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
		Status:     model.StatusGenerating,
		FilesCount: filesCount,
	}
	return nil
}

func (f *fakeStore) InsertFile(ctx context.Context, rec model.FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[rec.SessionID] = append(f.files[rec.SessionID], rec)
	return nil
}

func (f *fakeStore) SetFilesData(ctx context.Context, sessionID string, filesData []model.FilesDataEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.FilesData = filesData
	}
	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, sessionID string, status model.SessionStatus, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.Status = status
		if completedAt != nil {
			s.CompletedAt = completedAt
		}
	}
	return nil
}

func (f *fakeStore) SetOpenAIResponseID(ctx context.Context, sessionID, responseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.OpenAIResponseID = responseID
	}
	return nil
}

func (f *fakeStore) UpsertReport(ctx context.Context, sessionID string, u store.ReportUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.CompletedAt != nil {
		s.CompletedAt = u.CompletedAt
	}
	if s.Report == nil {
		s.Report = &model.Report{SessionID: sessionID}
	}
	if u.Structured != nil {
		s.Report.Structured = *u.Structured
	}
	if u.Text != nil {
		s.Report.Text = *u.Text
	}
	if u.OpenAIStatus != nil {
		s.Report.OpenAIStatus = *u.OpenAIStatus
	}
	f.reports[sessionID] = u
	return nil
}

func (f *fakeStore) GetBySession(ctx context.Context, sessionID string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID], nil
}

func (f *fakeStore) ListRecent(ctx context.Context, limit int) ([]*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Session
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) CascadeDelete(ctx context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(f.sessions, sessionID)
	delete(f.files, sessionID)
	delete(f.messages, sessionID)
	return true, nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, sessionID, role, content string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := len(f.messages[sessionID]) + 1
	f.messages[sessionID] = append(f.messages[sessionID], model.Message{
		SessionID: sessionID, Role: role, Content: content, Order: order,
	})
	return order, nil
}

// fakeExtractor returns a fixed, per-filename result set, used to assemble
// the exact literal scenarios from the end-to-end cases.
type fakeExtractor struct {
	byFile map[string]extractor.PDFResult
}

func (f *fakeExtractor) Extract(ctx context.Context, inputs []extractor.PDFInput) []extractor.PDFResult {
	out := make([]extractor.PDFResult, len(inputs))
	for i, in := range inputs {
		if r, ok := f.byFile[in.Filename]; ok {
			out[i] = r
		} else {
			out[i] = extractor.PDFResult{SourceFile: in.Filename, Transactions: []map[string]interface{}{}}
		}
	}
	return out
}

// fakeLLM returns a fixed set of decisions keyed by candidate id.
type fakeLLM struct {
	decisions map[string]llmclassifier.Decision
	err       error
}

func (f *fakeLLM) Classify(ctx context.Context, candidates []llmclassifier.Candidate) ([]llmclassifier.Decision, llmclassifier.Exchange, error) {
	if f.err != nil {
		return nil, llmclassifier.Exchange{Prompt: "prompt"}, f.err
	}
	var out []llmclassifier.Decision
	for _, c := range candidates {
		if d, ok := f.decisions[c.ID]; ok {
			out = append(out, d)
		}
	}
	return out, llmclassifier.Exchange{Prompt: "prompt", Response: "response"}, nil
}

func waitForTerminal(t *testing.T, fs *fakeStore, sessionID string) *model.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sess, _ := fs.GetBySession(context.Background(), sessionID)
		if sess != nil && sess.Status != model.StatusGenerating {
			return sess
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not reach a terminal state in time")
	return nil
}

func newTestOrchestrator(fs *fakeStore, ext extractor.Extractor, llm LLMClassifier) *Orchestrator {
	reg := sessionregistry.New(fs)
	o := New(fs, reg, ext, llm, nil, time.Second, "KZT")
	return o
}

// TestScenarioTwoPDFsOneTerminalDeposit mirrors the literal scenario: two
// PDFs, one with 3 revenue entries plus a terminal deposit, expecting
// revenue=2,450,000, non-revenue=50,000, March=1,700,000, April=750,000.
func TestScenarioTwoPDFsOneTerminalDeposit(t *testing.T) {
	fs := newFakeStore()
	ext := &fakeExtractor{byFile: map[string]extractor.PDFResult{
		"stmt-A.pdf": {SourceFile: "stmt-A.pdf", Transactions: []map[string]interface{}{
			{"date": "2024-03-04", "amount": "500000", "purpose": "Оплата по СФ №12"},
			{"date": "2024-03-15", "amount": "1200000", "purpose": "Оплата за услуги"},
			{"date": "2024-04-02", "amount": "50000", "purpose": "Cash In Терминал ID 42"},
		}},
		"stmt-B.pdf": {SourceFile: "stmt-B.pdf", Transactions: []map[string]interface{}{
			{"date": "2024-04-18", "amount": "750000", "purpose": "Оплата по договору"},
		}},
	}}
	o := newTestOrchestrator(fs, ext, nil)

	res, err := o.Submit(context.Background(), "sess-1", "", nil, []UploadedFile{
		{Name: "stmt-A.pdf", Data: []byte("pdf-a")},
		{Name: "stmt-B.pdf", Data: []byte("pdf-b")},
	})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	sess := waitForTerminal(t, fs, "sess-1")
	require.Equal(t, model.StatusCompleted, sess.Status)

	r := sess.Report.Structured
	require.True(t, r.Totals.Revenue.Value.Equal(decimalFromInt(2450000)))
	require.True(t, r.Totals.NonRevenue.Value.Equal(decimalFromInt(50000)))
	require.Equal(t, 3, r.Stats.AutoRevenue)
	require.Equal(t, 0, r.Stats.AgentReviewed)
	require.Equal(t, model.OpenAISkipped, sess.Report.OpenAIStatus)

	march := findMonth(t, r.Revenue.Years, 2024, 2)
	require.True(t, march.Value.Equal(decimalFromInt(1700000)))
	april := findMonth(t, r.Revenue.Years, 2024, 3)
	require.True(t, april.Value.Equal(decimalFromInt(750000)))
}

// TestScenarioAmbiguousResolvedByLLM mirrors the top-up-resolved-by-LLM case.
func TestScenarioAmbiguousResolvedByLLM(t *testing.T) {
	fs := newFakeStore()
	ext := &fakeExtractor{byFile: map[string]extractor.PDFResult{
		"stmt.pdf": {SourceFile: "stmt.pdf", Transactions: []map[string]interface{}{
			{"date": "2024-05-10", "amount": "300000", "purpose": "Пополнение счета от ИП Ахметов"},
		}},
	}}
	llm := &fakeLLM{decisions: map[string]llmclassifier.Decision{
		"sess-2_0": {ID: "sess-2_0", IsRevenue: true, Reason: "оплата от клиента"},
	}}
	o := newTestOrchestrator(fs, ext, llm)

	_, err := o.Submit(context.Background(), "sess-2", "", nil, []UploadedFile{{Name: "stmt.pdf", Data: []byte("x")}})
	require.NoError(t, err)

	sess := waitForTerminal(t, fs, "sess-2")
	require.Equal(t, model.StatusCompleted, sess.Status)
	r := sess.Report.Structured
	require.True(t, r.Totals.Revenue.Value.Equal(decimalFromInt(300000)))
	require.Equal(t, 1, r.Stats.AgentDecisions)
	require.Equal(t, model.OpenAICompleted, sess.Report.OpenAIStatus)
}

// TestScenarioLLMSilentOnSomeItems mirrors the partial-decisions case: four
// ambiguous items, the LLM answers for two, the other two fall to
// non-revenue/agent-missing and openai-status is partial.
func TestScenarioLLMSilentOnSomeItems(t *testing.T) {
	fs := newFakeStore()
	ext := &fakeExtractor{byFile: map[string]extractor.PDFResult{
		"stmt.pdf": {SourceFile: "stmt.pdf", Transactions: []map[string]interface{}{
			{"date": "2024-06-01", "amount": "10000", "purpose": "Перевод 1"},
			{"date": "2024-06-02", "amount": "20000", "purpose": "Перевод 2"},
			{"date": "2024-06-03", "amount": "30000", "purpose": "Перевод 3"},
			{"date": "2024-06-04", "amount": "40000", "purpose": "Перевод 4"},
		}},
	}}
	llm := &fakeLLM{decisions: map[string]llmclassifier.Decision{
		"sess-3_0": {ID: "sess-3_0", IsRevenue: true, Reason: "client payment"},
		"sess-3_1": {ID: "sess-3_1", IsRevenue: false, Reason: "internal transfer"},
	}}
	o := newTestOrchestrator(fs, ext, llm)

	_, err := o.Submit(context.Background(), "sess-3", "", nil, []UploadedFile{{Name: "stmt.pdf", Data: []byte("x")}})
	require.NoError(t, err)

	sess := waitForTerminal(t, fs, "sess-3")
	require.Equal(t, model.StatusCompleted, sess.Status)
	require.Equal(t, model.OpenAIPartial, sess.Report.OpenAIStatus)
	require.Equal(t, 2, sess.Report.Structured.Stats.Unresolved)
	require.Equal(t, 2, sess.Report.Structured.Stats.AgentDecisions)
}

// TestDuplicateSubmissionRejected asserts dedup safety: a second Submit for
// the same session id while the first is in flight is rejected with
// Conflict, and a third submit after completion is accepted.
func TestDuplicateSubmissionRejected(t *testing.T) {
	fs := newFakeStore()
	block := make(chan struct{})
	ext := &blockingExtractor{release: block}
	o := newTestOrchestrator(fs, ext, nil)

	first, err := o.Submit(context.Background(), "sess-4", "", nil, []UploadedFile{{Name: "a.pdf", Data: []byte("x")}})
	require.NoError(t, err)
	require.True(t, first.Accepted)

	second, err := o.Submit(context.Background(), "sess-4", "", nil, []UploadedFile{{Name: "a.pdf", Data: []byte("x")}})
	require.NoError(t, err)
	require.True(t, second.Conflict)

	close(block)
	waitForTerminal(t, fs, "sess-4")

	third, err := o.Submit(context.Background(), "sess-4", "", nil, []UploadedFile{{Name: "a.pdf", Data: []byte("x")}})
	require.NoError(t, err)
	require.True(t, third.Accepted)
}

type blockingExtractor struct {
	release chan struct{}
}

func (b *blockingExtractor) Extract(ctx context.Context, inputs []extractor.PDFInput) []extractor.PDFResult {
	<-b.release
	out := make([]extractor.PDFResult, len(inputs))
	for i, in := range inputs {
		out[i] = extractor.PDFResult{SourceFile: in.Filename, Transactions: []map[string]interface{}{}}
	}
	return out
}

// TestExtractorCrashOnOneOfTwoFiles mirrors the per-file-error scenario: one
// PDF succeeds, the other reports an error, and the session still
// completes with the surviving transactions.
func TestExtractorCrashOnOneOfTwoFiles(t *testing.T) {
	fs := newFakeStore()
	ext := &fakeExtractor{byFile: map[string]extractor.PDFResult{
		"a.pdf": {SourceFile: "a.pdf", Transactions: []map[string]interface{}{
			{"date": "2024-07-01", "amount": "10000", "purpose": "Оплата по договору"},
			{"date": "2024-07-02", "amount": "20000", "purpose": "Оплата по договору"},
			{"date": "2024-07-03", "amount": "30000", "purpose": "Оплата по договору"},
			{"date": "2024-07-04", "amount": "40000", "purpose": "Оплата по договору"},
			{"date": "2024-07-05", "amount": "50000", "purpose": "Оплата по договору"},
		}},
		"b.pdf": {SourceFile: "b.pdf", Error: "Adobe limit"},
	}}
	o := newTestOrchestrator(fs, ext, nil)

	_, err := o.Submit(context.Background(), "sess-5", "", nil, []UploadedFile{
		{Name: "a.pdf", Data: []byte("x")},
		{Name: "b.pdf", Data: []byte("y")},
	})
	require.NoError(t, err)

	sess := waitForTerminal(t, fs, "sess-5")
	require.Equal(t, model.StatusCompleted, sess.Status)
	require.True(t, sess.Report.Structured.Totals.Revenue.Value.Equal(decimalFromInt(150000)))
}

// TestFutureDatedTransactionExcludedFromMonthly mirrors the future-dated
// scenario: the transaction counts toward totals but not the monthly table,
// and the gap shows up as a reconciliation delta.
func TestFutureDatedTransactionExcludedFromMonthly(t *testing.T) {
	fs := newFakeStore()
	ext := &fakeExtractor{byFile: map[string]extractor.PDFResult{
		"a.pdf": {SourceFile: "a.pdf", Transactions: []map[string]interface{}{
			{"date": "2099-01-01", "amount": "1000000", "purpose": "Оплата"},
		}},
	}}
	o := newTestOrchestrator(fs, ext, nil)

	_, err := o.Submit(context.Background(), "sess-6", "", nil, []UploadedFile{{Name: "a.pdf", Data: []byte("x")}})
	require.NoError(t, err)

	sess := waitForTerminal(t, fs, "sess-6")
	r := sess.Report.Structured
	require.True(t, r.Totals.Revenue.Value.Equal(decimalFromInt(1000000)))
	require.Empty(t, r.Revenue.Years)
	require.True(t, r.Stats.RevenueReconciliationDelta.Equal(decimalFromInt(1000000)))
}

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func findMonth(t *testing.T, years []model.YearBucket, year, monthIndex int) model.MonthBucket {
	t.Helper()
	for _, y := range years {
		if y.Year != year {
			continue
		}
		for _, m := range y.Months {
			if m.Month == monthIndex {
				return m
			}
		}
	}
	t.Fatalf("month %d/%d not found", year, monthIndex)
	return model.MonthBucket{}
}

// Package model holds the data-model types (Session, File, Transaction,
// Report, Message) shared across the Store, the Aggregator, the
// Orchestrator, and the ingress API. These are plain Go structs built
// around the money/date types (decimal.Decimal, time.Time) used throughout
// the rest of the service.
package model

import "time"

import "github.com/shopspring/decimal"

// SessionStatus is the three-state session lifecycle.
type SessionStatus string

const (
	StatusGenerating SessionStatus = "generating"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// OpenAIStatus tracks the LLM call outcome, orthogonal to SessionStatus.
type OpenAIStatus string

const (
	OpenAISkipped   OpenAIStatus = "skipped"
	OpenAICompleted OpenAIStatus = "completed"
	OpenAIPartial   OpenAIStatus = "partial"
	OpenAIFailed    OpenAIStatus = "failed"
)

// FileCategory is the closed set of categories an uploaded file is assigned.
type FileCategory string

const (
	CategoryStatements         FileCategory = "statements"
	CategoryTaxes              FileCategory = "taxes"
	CategoryFinancial          FileCategory = "financial"
	CategoryConvertedStatement FileCategory = "converted-statement"
	CategoryUncategorized      FileCategory = "uncategorized"
)

// Classification sources recorded on Transaction.ClassificationSource.
const (
	SourceHeuristic    = "heuristic"
	SourceAgent        = "agent"
	SourceAgentMissing = "agent-missing"
)

// FileRecord is one uploaded artifact bound to a Session.
type FileRecord struct {
	SessionID      string
	ExternalFileID string
	OriginalName   string
	Size           int64
	MimeType       string
	Category       FileCategory
	Checksum       string
	UploadedAt     time.Time
}

// FilesDataEntry is the canonical `files-data` shape: an always-populated
// five-key superset, resolved in DESIGN.md.
type FilesDataEntry struct {
	Name           string `json:"name"`
	Size           int64  `json:"size"`
	MimeType       string `json:"mime_type"`
	Category       string `json:"category"`
	ExternalFileID string `json:"external_file_id"`
}

// Transaction is one credit-side entry extracted from a statement.
type Transaction struct {
	InternalID            string          `json:"id"`
	RawAmount             string          `json:"raw_amount"`
	ParsedAmount          decimal.Decimal `json:"parsed_amount"`
	ValueDate             *time.Time      `json:"value_date,omitempty"`
	Purpose               string          `json:"purpose"`
	Sender                string          `json:"sender"`
	Correspondent         string          `json:"correspondent"`
	BIN                   string          `json:"bin,omitempty"`
	SourceFile            string          `json:"source_file,omitempty"`
	ClassificationSource  string          `json:"classification_source"`
	ClassificationReason  string          `json:"classification_reason"`
	PossibleNonRevenue    bool            `json:"possible_non_revenue"`
	IsRevenue             bool            `json:"is_revenue"`
}

// MonthBucket is one month-index (0..11) aggregation row.
type MonthBucket struct {
	Month     int             `json:"month"`
	Label     string          `json:"label"`
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

// YearBucket is one year's total plus its sorted month buckets.
type YearBucket struct {
	Year      int             `json:"year"`
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
	Months    []MonthBucket   `json:"months"`
}

// MoneyTotal pairs a decimal value with its rendered form.
type MoneyTotal struct {
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

// TrailingWindow is the trailing-12-months-revenue figure.
type TrailingWindow struct {
	Value               decimal.Decimal `json:"value"`
	Formatted           string          `json:"formatted"`
	ReferencePeriodEnd  *time.Time      `json:"reference_period_end,omitempty"`
}

// Stats carries the classification and reconciliation counters exposed
// alongside the structured report.
type Stats struct {
	Total                          int             `json:"total"`
	AutoRevenue                    int             `json:"auto_revenue"`
	AgentReviewed                  int             `json:"agent_reviewed"`
	AgentDecisions                 int             `json:"agent_decisions"`
	Unresolved                     int             `json:"unresolved"`
	RevenueReconciliationDelta     decimal.Decimal `json:"revenue_reconciliation_delta"`
	NonRevenueReconciliationDelta  decimal.Decimal `json:"non_revenue_reconciliation_delta"`
}

// ReportStructured is the canonical machine form of a Report — the source
// of truth that report-text is rendered from.
type ReportStructured struct {
	SessionID   string    `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Totals      struct {
		Revenue    MoneyTotal `json:"revenue"`
		NonRevenue MoneyTotal `json:"non_revenue"`
	} `json:"totals"`
	Revenue struct {
		Years []YearBucket `json:"years"`
	} `json:"revenue"`
	NonRevenue struct {
		Years []YearBucket `json:"years"`
	} `json:"non_revenue"`
	Trailing12MonthsRevenue TrailingWindow `json:"trailing_12_months_revenue"`
	Stats                   Stats          `json:"stats"`
}

// Report is the terminal artifact of a session.
type Report struct {
	SessionID    string           `json:"session_id"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Structured   ReportStructured `json:"structured"`
	Text         string           `json:"text"`
	OpenAIStatus OpenAIStatus     `json:"openai_status"`
}

// Session is the logical submission.
type Session struct {
	SessionID        string                 `json:"session_id"`
	Comment          string                 `json:"comment"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	Status           SessionStatus          `json:"status"`
	FilesCount       int                    `json:"files_count"`
	FilesData        []FilesDataEntry       `json:"files_data"`
	Report           *Report                `json:"report,omitempty"`
	OpenAIResponseID string                 `json:"-"`
}

// Message is a durable conversational entry within a session.
type Message struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

package constants

// Content types and headers used across the ingress handlers.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"

	HeaderAccessControlAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderCacheControl                  = "Cache-Control"
)

// Common date formats.
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
	DateFormatISO  = "2006-01-02T15:04:05Z07:00"
)

// DB / SQL error message templates.
const (
	ErrTxStartFailed  = "failed to start transaction: "
	ErrTxCommitFailed = "failed to commit transaction: "
	ErrQueryFailed    = "query failed: "
	FormatSQLError    = "ERROR: %s"
)

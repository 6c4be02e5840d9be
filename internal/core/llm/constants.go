package llm

// Operation names attached to classified errors.
const (
	opComplete = "llm.complete"
)

// HTTP header values
const (
	contentTypeJSON     = "application/json"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerReferer       = "HTTP-Referer"
	headerTitle         = "X-Title"
)

// Error format strings
const (
	errFmtMarshalRequest = "marshal request: %w"
	errFmtDecodeResponse = "%w: decode response: %v"
)

// Log keys
const (
	logKeyModel    = "model"
	logKeyStatus   = "status"
	logKeyBody     = "body"
	logKeyLanguage = "language"
	logKeyDuration = "duration"
)

// maxLoggedBody caps the raw provider body written to logs.
const maxLoggedBody = 4096

package relay

// Callback payload prefix of the language selector buttons.
const CallbackPrefixLanguage = "lang_"

// Operation names attached to classified errors.
const (
	opHandle      = "relay.handle"
	opResolveFile = "relay.resolve_file"
	opComplete    = "relay.complete"
	opSelectLang  = "relay.select_language"
)

// Log field names.
const (
	logFieldChatID   = "chat_id"
	logFieldCategory = "category"
	logFieldKind     = "kind"
	logFieldStatus   = "status"
	logFieldBody     = "body"
	logFieldFileID   = "file_id"
	logFieldDuration = "duration"
	logFieldLanguage = "language"
	logFieldData     = "data"
)

// maxLoggedBody caps provider and download bodies written to logs.
const maxLoggedBody = 4096

// outcomeOK labels successful replies in the replies counter.
const outcomeOK = "ok"

// Package domain holds the platform-neutral message types the relay
// pipeline consumes and produces.
package domain

// Category classifies an inbound event.
type Category string

// Message categories.
const (
	CategoryCommand     Category = "command"
	CategoryCallback    Category = "callback"
	CategoryPhoto       Category = "photo"
	CategoryVoice       Category = "voice"
	CategoryText        Category = "text"
	CategoryUnsupported Category = "unsupported"
)

// Command names the relay reacts to.
const (
	CommandStart    = "start"
	CommandLanguage = "language"
)

// PhotoSize is one resolution variant of a photo.
type PhotoSize struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

// InboundMessage is one event received from the chat platform.
// It is built once by the platform glue and never modified afterwards.
type InboundMessage struct {
	ChatID   int64
	Category Category

	// Command is the command name without the leading slash.
	Command string
	Text    string

	// Photos is ordered by ascending resolution.
	Photos []PhotoSize

	CallbackID   string
	CallbackData string
}

// LargestPhoto returns the highest-resolution variant.
func (m InboundMessage) LargestPhoto() (PhotoSize, bool) {
	if len(m.Photos) == 0 {
		return PhotoSize{}, false
	}

	return m.Photos[len(m.Photos)-1], true
}

// Choice is an inline button attached to a reply.
type Choice struct {
	Label string
	Data  string
}

// Reply is the single outbound message produced for an inbound event.
type Reply struct {
	ChatID int64
	// Text is empty when only a callback acknowledgement is due.
	Text string
	// Choices are rendered one per row.
	Choices []Choice
	// CallbackID, when set, is acknowledged after the reply is sent.
	CallbackID string
}

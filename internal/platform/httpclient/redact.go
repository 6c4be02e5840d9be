package httpclient

import (
	"errors"
	"net/url"
	"regexp"
)

const redactedToken = "<redacted>"

// Telegram embeds the bot token in API and file paths: /bot<id>:<secret>/.
var botTokenPattern = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// RedactURL masks a bot token embedded in raw.
func RedactURL(raw string) string {
	return botTokenPattern.ReplaceAllString(raw, "bot"+redactedToken)
}

// RedactError masks bot tokens in the URL of any *url.Error wrapped by err
// and returns err.
func RedactError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = RedactURL(ue.URL)
	}

	return err
}

package telegrambot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
)

// apiLogger routes the Bot API library's own log lines (polling retries)
// to zerolog with bot tokens masked.
type apiLogger struct {
	logger *zerolog.Logger
}

func (l apiLogger) Println(v ...interface{}) {
	l.write(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l apiLogger) Printf(format string, v ...interface{}) {
	l.write(fmt.Sprintf(format, v...))
}

func (l apiLogger) write(line string) {
	l.logger.Warn().Str("component", "telegram-api").Msg(httpclient.RedactURL(line))
}

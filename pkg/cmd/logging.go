package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/and3rson/yagni/pkg/config"
)

func getConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	writer := zerolog.ConsoleWriter{Out: out}
	writer.TimeFormat = "15:04:05"
	writer.PartsOrder = []string{
		zerolog.TimestampFieldName,
		"req",
		"session",
		zerolog.LevelFieldName,
		zerolog.MessageFieldName,
	}

	writer.FormatFieldValue = func(value interface{}) string {
		if value == nil {
			return "                "
		}

		str, ok := value.(string)
		if ok {
			if len(str) == 16 {
				// request and session IDs are exactly 16 characters; we have to
				// guess based on the field content because we can't get the
				// current field name
				return fmt.Sprintf("\x1b[%dm%s\x1b[0m", 36, value)
			} else if strings.Contains(str, "\\n") && strings.Contains(str, "\\t") {
				// unquote values that contain line breaks and tabs because
				// they're most likely stack traces
				unquoted, err := strconv.Unquote(str)
				if err == nil {
					return unquoted
				}
			}
		}

		return fmt.Sprintf("%s", value)
	}

	return writer
}

// setupLogging configures the global logger from the log section of the
// configuration.
func setupLogging(cfg *config.Config) {
	if cfg.Log.JSON {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			return eris.ToJSON(err, true)
		}
	} else {
		log.Logger = log.Output(getConsoleWriter(os.Stderr))
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			return eris.ToString(err, true)
		}
	}

	zerolog.SetGlobalLevel(cfg.LogLevel())
	log.Logger = log.Logger.With().Stack().Logger()
}

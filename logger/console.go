package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	colorRed      = 31
	colorYellow   = 33
	colorCyan     = 36
	colorBold     = 1
	colorDarkGray = 90
	colorOther    = 81
)

// colorize returns the string s wrapped in ANSI code c, unless disabled is true or c is 0.
func colorize(s interface{}, c int, disabled bool) string {
	if os.Getenv("NO_COLOR") != "" || c == 0 {
		disabled = true
	}

	if disabled {
		return fmt.Sprintf("%s", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

func formatCaller(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		c, _ := i.(string)
		if c == "" {
			return ""
		}
		if cwd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(cwd, c); err == nil {
				c = rel
			}
		}
		return colorize(c, colorBold, noColor) + colorize(" >", colorCyan, noColor)
	}
}

func formatLevel(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		l, _ := i.(string)
		c := colorDarkGray
		switch l {
		case "warn", "warning":
			c = colorYellow
		case "error", "fatal", "panic":
			c = colorRed
		case "info":
			c = colorCyan
		}
		return colorize(fmt.Sprintf("| %-7s|", l), c, noColor)
	}
}

func formatTimestamp(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		t := "<nil>"
		switch tt := i.(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, tt); err == nil {
				t = ts.Local().Format(time.RFC3339Nano)
			} else {
				t = tt
			}
		case json.Number:
			t = tt.String()
		}
		return colorize(t, colorOther, noColor)
	}
}

// NewConsoleWriter creates the human readable writer behind the "pretty"
// transport. The duplicated trace id aliases are hidden.
func NewConsoleWriter(enableColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:             os.Stdout,
		TimeFormat:      time.RFC3339Nano,
		NoColor:         !enableColor,
		FormatLevel:     formatLevel(!enableColor),
		FormatCaller:    formatCaller(!enableColor),
		FormatTimestamp: formatTimestamp(!enableColor),
		FieldsExclude:   []string{TraceIDAliasKey, SpanIDAliasKey},
	}
}

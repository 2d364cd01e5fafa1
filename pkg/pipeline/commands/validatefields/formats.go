package validatefields

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormatValidator reports whether a string has a named format.
type FormatValidator func(value string) bool

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var uriSchemes = []string{"http://", "https://", "ftp://", "ws://", "wss://"}

// formats holds the built-in format validators by name.
var formats = map[string]FormatValidator{
	"email": func(v string) bool {
		return emailPattern.MatchString(v)
	},
	"uri": func(v string) bool {
		for _, scheme := range uriSchemes {
			if strings.HasPrefix(v, scheme) && len(v) > len(scheme) {
				return true
			}
		}
		return false
	},
	"uuid": func(v string) bool {
		_, err := uuid.Parse(v)
		return err == nil && len(v) == 36
	},
	"date": func(v string) bool {
		_, err := time.Parse(time.DateOnly, v)
		return err == nil
	},
	"datetime": func(v string) bool {
		_, err := time.Parse(time.RFC3339, v)
		return err == nil
	},
}

// Formats returns the names of the built-in formats.
func Formats() []string {
	return []string{"date", "datetime", "email", "uri", "uuid"}
}

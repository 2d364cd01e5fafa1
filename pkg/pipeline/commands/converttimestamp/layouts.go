package converttimestamp

import "time"

// Named formats accepted in inputFormats and outputFormat besides raw Go
// layouts.
const (
	FormatUnixMillis  = "unixTimeInMillis"
	FormatUnixSeconds = "unixTimeInSeconds"
)

var namedLayouts = map[string]string{
	"ANSIC":       time.ANSIC,
	"UnixDate":    time.UnixDate,
	"RubyDate":    time.RubyDate,
	"RFC822":      time.RFC822,
	"RFC822Z":     time.RFC822Z,
	"RFC850":      time.RFC850,
	"RFC1123":     time.RFC1123,
	"RFC1123Z":    time.RFC1123Z,
	"RFC3339":     time.RFC3339,
	"RFC3339Nano": time.RFC3339Nano,
	"Kitchen":     time.Kitchen,
	"Stamp":       time.Stamp,
	"StampMilli":  time.StampMilli,
	"StampMicro":  time.StampMicro,
	"StampNano":   time.StampNano,
	"DateTime":    time.DateTime,
	"DateOnly":    time.DateOnly,
	"TimeOnly":    time.TimeOnly,
}

// layoutOf resolves a named format to its Go layout; any other string is
// taken as a layout itself.
func layoutOf(format string) string {
	if layout, ok := namedLayouts[format]; ok {
		return layout
	}
	return format
}

func isUnix(format string) bool {
	return format == FormatUnixMillis || format == FormatUnixSeconds
}

package recorder

import "strings"

// windowsReservedNames are device names that cannot be used as Windows
// filenames regardless of extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

const maxSanitizedNameLen = 100

// SanitizeDeviceName turns an arbitrary display or audio device name into a
// safe path segment, following spec.md §4.5's security-critical six-step
// procedure verbatim, ported from
// original_source/src/memoire-core/src/recorder.rs::sanitize_monitor_name.
func SanitizeDeviceName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '\\' || r == '/' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	sanitized := strings.ReplaceAll(b.String(), "..", "_")

	sanitized = strings.TrimFunc(sanitized, func(r rune) bool {
		return r == '_' || r == '.' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	upper := strings.ToUpper(sanitized)
	base := upper
	if i := strings.IndexByte(upper, '.'); i >= 0 {
		base = upper[:i]
	}
	if windowsReservedNames[base] {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > maxSanitizedNameLen {
		runes := []rune(sanitized)
		if len(runes) > maxSanitizedNameLen {
			runes = runes[:maxSanitizedNameLen]
		}
		sanitized = string(runes)
	}

	if sanitized == "" {
		return "monitor"
	}
	return sanitized
}

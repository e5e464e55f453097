package diag

// Severity orders diagnostics from informational to blocking.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]struct{ upper, lower string }{
	SevInfo:    {"INFO", "info"},
	SevWarning: {"WARNING", "warning"},
	SevError:   {"ERROR", "error"},
}

// Valid reports whether s is one of the declared severities. Values read back
// from a cache are checked with it.
func (s Severity) Valid() bool { return int(s) < len(severityNames) }

// String is the header form used by the pretty printer, e.g. "ERROR".
func (s Severity) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return severityNames[s].upper
}

// Label is the lower-case form used in golden and short output.
func (s Severity) Label() string {
	if !s.Valid() {
		return "unknown"
	}
	return severityNames[s].lower
}

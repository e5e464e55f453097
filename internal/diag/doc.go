// Package diag defines the diagnostic model shared by the checker, the driver
// and the formatters.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier (codes.go) with a stable string form such as SEM3001.
//   - Message: human oriented text, short and actionable.
//   - Primary: the source.Span the editor highlights.
//   - Notes: related locations. Each note span carries its own file, so a note may
//     point into a different file than the primary span.
//
// Notes should add new context ("'item' is declared here.") rather than repeat
// the message.
//
// # Emitting diagnostics
//
// Rules emit through a Reporter. ReportBuilder (ReportError/ReportWarning/ReportInfo)
// chains WithNote before Emit. SliceReporter keeps emission order and is what the
// checker uses per component; Bag is the bounded container the driver merges into
// before sorting, filtering and rendering.
//
// Package diag performs no formatting or IO beyond the golden/short line format;
// rendering lives in internal/diagfmt.
package diag

package diag

import (
	"testing"

	"tplcheck/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	tmpl := fs.Add("/workspace/app/list.html", []byte("a\nb\n"), 0)
	comp := fs.Add("/workspace/app/list.ts", []byte("x\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     SemaDeprecatedUsage,
			Message:  "another",
			Primary:  source.Span{File: tmpl, Start: 2, End: 3},
		},
		{
			Severity: SevError,
			Code:     SemaReadOnlyWrite,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: tmpl, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: comp, Start: 0, End: 1}, Msg: "'x' is declared here."},
				{Span: source.Span{File: source.FileID(42)}, Msg: "dropped"},
			},
		},
	}

	expected := "error SEM3001 app/list.html:1:1 first line second\n" +
		"warning SEM3002 app/list.html:2:1 another\n" +
		"note SEM3001 app/list.ts:1:1 'x' is declared here."

	if got := FormatGoldenDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestFormatShortKeepsOrder(t *testing.T) {
	fs := source.NewFileSetWithBase("/w")
	f := fs.Add("/w/t.html", []byte("abc\ndef\n"), 0)
	diags := []Diagnostic{
		NewError(SemaReadOnlyWrite, source.Span{File: f, Start: 4, End: 5}, "second"),
		NewError(SemaReadOnlyWrite, source.Span{File: f, Start: 0, End: 1}, "first"),
	}
	want := "error SEM3001 t.html:2:1 second\nerror SEM3001 t.html:1:1 first"
	if got := FormatShortDiagnostics(diags, fs, false); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

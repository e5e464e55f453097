package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("list.html", []byte(sampleTemplate))

	var buf bytes.Buffer
	if err := JSON(&buf, readOnlyBag(fileID), fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got count=%d len=%d", output.Count, len(output.Diagnostics))
	}
	d := output.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "SEM3001" {
		t.Fatalf("expected ERROR SEM3001, got %s %s", d.Severity, d.Code)
	}
	want := LocationJSON{File: "list.html", StartByte: 47, EndByte: 58, StartLine: 2, StartCol: 43, EndLine: 2, EndCol: 54}
	if d.Location != want {
		t.Fatalf("expected location %+v, got %+v", want, d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "'item' is declared here." || d.Notes[0].Location.StartCol != 19 {
		t.Fatalf("expected the declaration note, got %+v", d.Notes)
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("list.html", []byte(sampleTemplate))

	var buf bytes.Buffer
	if err := JSON(&buf, readOnlyBag(fileID), fs, JSONOpts{PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if strings.Contains(buf.String(), "start_line") {
		t.Fatalf("expected no line positions, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "notes") {
		t.Fatalf("expected notes omitted, got:\n%s", buf.String())
	}
}

func TestJSONTimingNotesAlwaysIncluded(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("bundle.tpl.json", []byte("{}"))
	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevInfo, diag.ObsTimings, source.Span{File: fileID}, "timings").
		WithNote(source.Span{File: fileID}, "load: 1.00ms"))

	output := BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if len(output.Diagnostics) != 1 || len(output.Diagnostics[0].Notes) != 1 {
		t.Fatalf("expected timing notes, got %+v", output.Diagnostics)
	}
}

func TestJSONMaxLimit(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("list.html", []byte(sampleTemplate))
	bag := diag.NewBag(10)
	for i := range uint32(5) {
		bag.Add(diag.NewWarning(diag.SemaDeprecatedUsage, source.Span{File: fileID, Start: i, End: i + 1}, "member 'old' deprecated."))
	}

	output := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if output.Count != 2 || len(output.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", output.Count)
	}
	if bag.Len() != 5 {
		t.Fatalf("expected bag untouched, got %d", bag.Len())
	}
}

func TestJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, nil, source.NewFileSet(), JSONOpts{}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"diagnostics": []`) {
		t.Fatalf("expected an empty array, got:\n%s", buf.String())
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSetWithBase("/work")
	fileID := fs.AddVirtual("/work/list.html", []byte(sampleTemplate))

	var buf bytes.Buffer
	if err := Short(&buf, readOnlyBag(fileID), fs, true); err != nil {
		t.Fatalf("Short() error: %v", err)
	}
	want := "error SEM3001 list.html:2:43 Cannot assign to template variable 'item'. Template variables are read-only.\n" +
		"note SEM3001 list.html:2:19 'item' is declared here.\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

package driver

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tplcheck/internal/bundle"
	"tplcheck/internal/diag"
	"tplcheck/internal/pipeline"
	"tplcheck/internal/sema"
	"tplcheck/internal/source"
)

func codes(bag *diag.Bag) []string {
	out := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestCheckReportsWriteToTemplateVariable(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, "button.tpl.json", buttonBundle("ButtonComponent", "button.html"))

	res, err := Check(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	items := res.Bag.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", codes(res.Bag))
	}
	d := items[0]
	if d.Code != diag.SemaReadOnlyWrite || d.Severity != diag.SevError {
		t.Fatalf("expected SEM3001 error, got %s %s", d.Severity, d.Code.ID())
	}
	if want := "Cannot assign to template variable 'item'. Template variables are read-only."; d.Message != want {
		t.Fatalf("expected %q, got %q", want, d.Message)
	}
	start, _ := res.FileSet.Resolve(d.Primary)
	if start.Line != 1 || start.Col != 40 {
		t.Fatalf("expected primary at 1:40, got %d:%d", start.Line, start.Col)
	}
	if len(d.Notes) != 1 || d.Notes[0].Msg != "'item' is declared here." {
		t.Fatalf("unexpected notes %+v", d.Notes)
	}
	if len(res.Components) != 1 || res.Components[0].Name != "ButtonComponent" || res.Components[0].Visited == 0 {
		t.Fatalf("unexpected component results %+v", res.Components)
	}
	if res.Report.TotalMS < 0 || len(res.Report.Phases) != 3 {
		t.Fatalf("expected load, bind+check and collect phases, got %+v", res.Report.Phases)
	}
}

func TestCheckDeprecatedUsageIsGated(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, "button.tpl.json", buttonBundle("ButtonComponent", "button.html"))

	res, err := Check(context.Background(), path, Options{Deprecated: sema.DeprecatedOptions{Enabled: true}})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var warning *diag.Diagnostic
	for i, d := range res.Bag.Items() {
		if d.Code == diag.SemaDeprecatedUsage {
			warning = &res.Bag.Items()[i]
		}
	}
	if warning == nil || warning.Severity != diag.SevWarning {
		t.Fatalf("expected a deprecated-usage warning, got %v", codes(res.Bag))
	}
	if warning.Message != "member 'legacy' deprecated. use title" {
		t.Fatalf("unexpected message %q", warning.Message)
	}

	res, err = Check(context.Background(), path, Options{
		Deprecated:       sema.DeprecatedOptions{Enabled: true},
		WarningsAsErrors: true,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, d := range res.Bag.Items() {
		if d.Severity != diag.SevError {
			t.Fatalf("expected every diagnostic promoted to error, got %s %s", d.Severity, d.Code.ID())
		}
	}

	res, err = Check(context.Background(), path, Options{
		Deprecated:     sema.DeprecatedOptions{Enabled: true},
		IgnoreWarnings: true,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := codes(res.Bag); len(got) != 1 || got[0] != "SEM3001" {
		t.Fatalf("expected only SEM3001 with warnings ignored, got %v", got)
	}
}

func TestCheckDirectoryKeepsBundleOrderAndReportsBrokenBundles(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "b/second.tpl.json", buttonBundle("Second", "second.html"))
	writeBundle(t, dir, "a/first.tpl.msgpack", buttonBundle("First", "first.html"))
	writeFile(t, dir, "c/broken.tpl.json", []byte(`{"version": 1, "components": [{"name": "X", "file": "x.html", "bogus": true}]}`))
	missing := buttonBundle("Missing", "missing.html")
	missing.Files = nil
	writeBundle(t, dir, "d/missing.tpl.json", missing)
	writeFile(t, dir, ".hidden/skip.tpl.json", []byte(`not json`))

	res, err := Check(context.Background(), dir, Options{Jobs: 2})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []string{"SEM3001", "SEM3001", "IO4002", "IO4001"}
	got := codes(res.Bag)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(res.Bundles) != 4 {
		t.Fatalf("expected 4 bundles, got %d", len(res.Bundles))
	}
	if !errors.Is(res.Bundles[2].Err, bundle.ErrMalformed) {
		t.Fatalf("expected malformed error for broken bundle, got %v", res.Bundles[2].Err)
	}
	if res.Bundles[3].Err == nil || errors.Is(res.Bundles[3].Err, bundle.ErrMalformed) {
		t.Fatalf("expected a load error for the missing template, got %v", res.Bundles[3].Err)
	}
	first := res.FileSet.Get(res.Bag.Items()[0].Primary.File)
	if first == nil || first.Path != "first.html" {
		t.Fatalf("expected first bundle's diagnostics first, got %+v", first)
	}
	broken := res.FileSet.Get(res.Bag.Items()[2].Primary.File)
	if broken == nil || filepath.Base(broken.Path) != "broken.tpl.json" {
		t.Fatalf("expected IO diagnostic on the bundle path, got %+v", broken)
	}
}

func TestCheckSortByLocation(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, "button.tpl.json", buttonBundle("ButtonComponent", "button.html"))
	opts := Options{Deprecated: sema.DeprecatedOptions{Enabled: true}}

	res, err := Check(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := strings.Join(codes(res.Bag), ","); got != "SEM3002,SEM3001" {
		t.Fatalf("expected traversal order (inputs before outputs), got %s", got)
	}

	opts.SortByLocation = true
	res, err = Check(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := strings.Join(codes(res.Bag), ","); got != "SEM3001,SEM3002" {
		t.Fatalf("expected location order, got %s", got)
	}
}

func TestCheckRespectsMaxDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "a.tpl.json", buttonBundle("A", "a.html"))
	writeBundle(t, dir, "b.tpl.json", buttonBundle("B", "b.html"))

	res, err := Check(context.Background(), dir, Options{MaxDiagnostics: 1, EnableTimings: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	got := codes(res.Bag)
	if len(got) != 2 || got[0] != "SEM3001" || got[1] != "OBS6001" {
		t.Fatalf("expected one SEM3001 plus timings, got %v", got)
	}
	timing := res.Bag.Items()[1]
	if len(timing.Notes) != 1 || !strings.Contains(timing.Notes[0].Msg, `"phases"`) {
		t.Fatalf("expected JSON timing note, got %+v", timing.Notes)
	}
}

func TestCheckReusesCachedResults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "button.html", []byte(buttonTemplate))
	b := buttonBundle("ButtonComponent", "button.html")
	b.Files = nil
	path := writeBundle(t, dir, "button.tpl.json", b)

	cache := NewMemoryCache(4)
	first, err := Check(context.Background(), path, Options{Cache: cache})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if first.CacheHits != 0 || cache.Len() != 1 {
		t.Fatalf("expected a cold run to fill the cache, got hits=%d len=%d", first.CacheHits, cache.Len())
	}

	sink := &pipeline.RecordingSink{}
	second, err := Check(context.Background(), path, Options{Cache: cache, Progress: sink})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if second.CacheHits != 1 || len(second.Components) != 0 {
		t.Fatalf("expected a cache hit and no checked components, got hits=%d checked=%d", second.CacheHits, len(second.Components))
	}
	render := func(r *Result) string {
		return diag.FormatShortDiagnostics(r.Bag.Items(), r.FileSet, true)
	}
	if render(first) != render(second) {
		t.Fatalf("expected identical output from cache:\n%s\n---\n%s", render(first), render(second))
	}
	var cached bool
	for _, ev := range sink.Events() {
		if ev.Stage == pipeline.StageCache && ev.Component == "ButtonComponent" {
			cached = true
		}
	}
	if !cached {
		t.Fatalf("expected a cache event, got %+v", sink.Events())
	}

	// a changed template file invalidates the entry
	writeFile(t, dir, "button.html", []byte(strings.Replace(buttonTemplate, "button", "buttoN", 1)))
	third, err := Check(context.Background(), path, Options{Cache: cache})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if third.CacheHits != 0 {
		t.Fatalf("expected a miss after the template changed")
	}

	// options are part of the key
	fourth, err := Check(context.Background(), path, Options{Cache: cache, Deprecated: sema.DeprecatedOptions{Enabled: true}})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if fourth.CacheHits != 0 {
		t.Fatalf("expected a miss with different rule options")
	}
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }
func (failingRule) ShouldCheck(*source.File) bool { return true }
func (failingRule) CheckNode(sema.NodeRef) ([]diag.Diagnostic, error) {
	return nil, sema.ErrRuleNotImplemented
}

func TestCheckRuleFailures(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, "button.tpl.json", buttonBundle("ButtonComponent", "button.html"))
	rules := []sema.RuleFactory{func(sema.RuleContext) sema.NodeRule { return failingRule{} }}

	res, err := Check(context.Background(), path, Options{Rules: rules})
	if err != nil {
		t.Fatalf("expected lenient mode to succeed, got %v", err)
	}
	if len(res.Failures()) != 1 || !errors.Is(res.Failures()[0], sema.ErrRuleNotImplemented) {
		t.Fatalf("expected one recorded failure, got %v", res.Failures())
	}
	if got := codes(res.Bag); len(got) != 1 || got[0] != "SEM3001" {
		t.Fatalf("expected the read-only rule to keep working, got %v", got)
	}

	_, err = Check(context.Background(), path, Options{Rules: rules, Strict: true})
	if !errors.Is(err, sema.ErrRuleNotImplemented) {
		t.Fatalf("expected strict mode to fail with the rule error, got %v", err)
	}
}

func TestCheckCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, "button.tpl.json", buttonBundle("ButtonComponent", "button.html"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Check(ctx, path, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestListBundles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.tpl.json", []byte("{}"))
	writeFile(t, dir, "sub/a.tpl.msgpack", nil)
	writeFile(t, dir, "notes.json", []byte("{}"))
	writeFile(t, dir, ".git/x.tpl.json", []byte("{}"))

	paths, err := ListBundles(dir)
	if err != nil {
		t.Fatalf("ListBundles: %v", err)
	}
	want := []string{filepath.Join(dir, "sub", "a.tpl.msgpack"), filepath.Join(dir, "z.tpl.json")}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, paths)
	}

	if _, err := ListBundles(t.TempDir()); err == nil || !strings.Contains(err.Error(), "no template bundles") {
		t.Fatalf("expected an empty directory error, got %v", err)
	}
	if _, err := ListBundles(filepath.Join(dir, "nope")); err == nil {
		t.Fatalf("expected an error for a missing path")
	}
}

package driver

import (
	"time"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/observ"
	"tplcheck/internal/pipeline"
	"tplcheck/internal/sema"
	"tplcheck/internal/source"
)

// Options configure a Check run.
type Options struct {
	MaxDiagnostics   int
	Jobs             int // <= 0 means GOMAXPROCS
	Strict           bool
	Deprecated       sema.DeprecatedOptions
	Rules            []sema.RuleFactory // extra rules; disables caching
	IgnoreWarnings   bool
	WarningsAsErrors bool
	// SortByLocation orders the collected diagnostics by file and offset and
	// drops exact repeats. Off keeps bundle, component and traversal order.
	SortByLocation bool
	EnableTimings  bool
	// BaseDir renders relative paths and anchors deprecated-usage excludes.
	// Defaults to the checked directory, or the bundle's directory.
	BaseDir  string
	Cache    Cache
	Progress pipeline.ProgressSink
}

// BundleResult describes one input bundle.
type BundleResult struct {
	Path       string
	Components []ast.ComponentID
	Cached     bool
	Err        error // load or decode failure, also reported as a diagnostic
}

// ComponentResult is the outcome of checking one component.
type ComponentResult struct {
	Decl        ast.ComponentID
	Name        string
	Bundle      string
	Diagnostics []diag.Diagnostic // binder diagnostics first, then rule diagnostics
	Failures    []*sema.RuleFailure
	Visited     int
	BindTime    time.Duration
	CheckTime   time.Duration
}

// Result is the outcome of a Check run.
type Result struct {
	Bag        *diag.Bag
	FileSet    *source.FileSet
	Builder    *ast.Builder
	Bundles    []BundleResult
	Components []ComponentResult // only components checked in this run
	Timings    pipeline.Timings
	Report     observ.Report
	CacheHits  int
}

// Failures lists every rule failure of the run in component order.
func (r *Result) Failures() []*sema.RuleFailure {
	var out []*sema.RuleFailure
	for i := range r.Components {
		out = append(out, r.Components[i].Failures...)
	}
	return out
}

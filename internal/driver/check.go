package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tplcheck/internal/ast"
	"tplcheck/internal/bundle"
	"tplcheck/internal/diag"
	"tplcheck/internal/observ"
	"tplcheck/internal/pipeline"
	"tplcheck/internal/project"
	"tplcheck/internal/sema"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
	"tplcheck/internal/trace"
)

type loadedBundle struct {
	res   BundleResult
	key   project.Digest
	keyed bool
	diags []diag.Diagnostic // load failure or cached diagnostics
}

// Check checks the bundle at path, or every bundle below the directory path.
// Bundles are loaded one by one into a shared tree, then components are bound
// and checked in parallel. Diagnostics are collected per bundle in input order
// and per component in traversal order. Malformed bundles become IO diagnostics;
// the returned error is reserved for unusable input, cancellation and rule
// failures in strict mode.
func Check(ctx context.Context, path string, opts Options) (*Result, error) {
	paths, err := ListBundles(path)
	if err != nil {
		return nil, err
	}
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = path
		if len(paths) == 1 && paths[0] == path {
			baseDir = filepath.Dir(path)
		}
	}

	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "check", trace.CurrentSpan(ctx).SpanID).
		WithExtra("path", path)
	defer root.End("")

	timer := observ.NewTimer()
	res := &Result{
		FileSet: source.NewFileSetWithBase(baseDir),
		Builder: ast.NewBuilder(ast.Hints{}, nil),
	}

	// load
	loadIdx := timer.Begin("load")
	loadSpan := trace.Begin(tracer, trace.ScopePass, "load", root.ID())
	optsKey := optionsDigest(opts, baseDir)
	bundles := make([]*loadedBundle, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			loadSpan.End("cancelled")
			return nil, err
		}
		bundles = append(bundles, loadBundle(p, res, opts, optsKey, tracer, loadSpan.ID()))
	}
	loadSpan.WithExtra("bundles", strconv.Itoa(len(paths))).
		WithExtra("cache_hits", strconv.Itoa(res.CacheHits)).
		End("")
	timer.EndItems(loadIdx, fmt.Sprintf("%d cached", res.CacheHits), len(paths))

	// bind+check
	var work []ComponentResult
	for _, lb := range bundles {
		if lb.res.Err != nil || lb.res.Cached {
			continue
		}
		for _, decl := range lb.res.Components {
			work = append(work, ComponentResult{
				Decl:   decl,
				Name:   res.Builder.ComponentName(decl),
				Bundle: lb.res.Path,
			})
		}
	}
	for i := range work {
		pipeline.Emit(opts.Progress, pipeline.Event{Component: work[i].Name, Stage: pipeline.StageBind, Status: pipeline.StatusQueued})
	}

	checkIdx := timer.Begin("bind+check")
	checkSpan := trace.Begin(tracer, trace.ScopePass, "bind+check", root.ID())
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return checkComponent(res, &work[i], opts, tracer, checkSpan.ID())
		})
	}
	if err := g.Wait(); err != nil {
		checkSpan.End(err.Error())
		timer.End(checkIdx, "failed")
		return nil, err
	}
	checkSpan.WithExtra("components", strconv.Itoa(len(work))).
		WithExtra("jobs", strconv.Itoa(jobs)).
		End("")
	timer.EndItems(checkIdx, fmt.Sprintf("jobs=%d", jobs), len(work))
	res.Components = work

	// collect
	collectIdx := timer.Begin("collect")
	bag := diag.NewBag(opts.MaxDiagnostics)
	next := 0
	for _, lb := range bundles {
		res.Bundles = append(res.Bundles, lb.res)
		if lb.res.Err != nil || lb.res.Cached {
			bag.AddAll(lb.diags)
			continue
		}
		var diags []diag.Diagnostic
		clean := true
		names := make([]string, 0, len(lb.res.Components))
		for range lb.res.Components {
			c := &work[next]
			next++
			names = append(names, c.Name)
			diags = append(diags, c.Diagnostics...)
			clean = clean && len(c.Failures) == 0
			res.Timings.Add(pipeline.StageBind, c.BindTime)
			res.Timings.Add(pipeline.StageCheck, c.CheckTime)
		}
		bag.AddAll(diags)
		// a failing rule produced a partial result; do not remember it
		if clean && lb.keyed {
			if err := opts.Cache.Put(lb.key, toCached(lb.res.Path, names, diags, res.FileSet)); err != nil {
				trace.Point(tracer, trace.ScopePass, "cache-error", err.Error(), root.ID())
			}
		}
	}

	if opts.IgnoreWarnings {
		bag.Filter(func(d diag.Diagnostic) bool {
			return d.Severity != diag.SevWarning
		})
	}
	if opts.WarningsAsErrors {
		bag.Transform(func(d diag.Diagnostic) diag.Diagnostic {
			if d.Severity == diag.SevWarning {
				d.Severity = diag.SevError
			}
			return d
		})
	}
	if opts.SortByLocation {
		bag.Sort()
		bag.Dedup()
	}
	timer.EndItems(collectIdx, "", bag.Len())

	res.Report = timer.Report()
	if opts.EnableTimings {
		appendTimingDiagnostic(bag, source.Span{File: res.FileSet.AddVirtual(path, nil)}, timingPayload{
			Path:       path,
			TotalMS:    res.Report.TotalMS,
			Components: len(work),
			CacheHits:  res.CacheHits,
			Phases:     res.Report.Phases,
		})
	}
	res.Bag = bag
	root.WithExtra("diagnostics", strconv.Itoa(bag.Len()))
	return res, nil
}

func loadBundle(path string, res *Result, opts Options, optsKey project.Digest, tracer trace.Tracer, parent uint64) *loadedBundle {
	lb := &loadedBundle{res: BundleResult{Path: path}}
	pipeline.Emit(opts.Progress, pipeline.Event{Component: path, Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		res.Timings.Add(pipeline.StageLoad, elapsed)
		status := pipeline.StatusDone
		if lb.res.Err != nil {
			status = pipeline.StatusError
		}
		pipeline.Emit(opts.Progress, pipeline.Event{Component: path, Stage: pipeline.StageLoad, Status: status, Err: lb.res.Err, Elapsed: elapsed})
	}()

	b, raw, err := bundle.Read(path)
	var loaded *bundle.Loaded
	if err == nil {
		loaded, err = b.Lower(res.FileSet, res.Builder, filepath.Dir(path))
		if err != nil {
			err = fmt.Errorf("%s: %w", path, err)
		}
	}
	if err != nil {
		lb.res.Err = err
		lb.diags = []diag.Diagnostic{loadDiagnostic(res.FileSet, path, err)}
		trace.Point(tracer, trace.ScopePass, "load-failed", err.Error(), parent)
		return lb
	}
	lb.res.Components = loaded.Components

	if opts.Cache == nil || len(opts.Rules) > 0 {
		return lb
	}
	lb.key = bundleKey(path, raw, loaded.Files, res.FileSet, optsKey)
	lb.keyed = true
	var payload CachedBundle
	hit, err := opts.Cache.Get(lb.key, &payload)
	switch {
	case err != nil:
		trace.Point(tracer, trace.ScopePass, "cache-error", err.Error(), parent)
	case hit:
		lb.res.Cached = true
		lb.diags = fromCached(&payload, res.FileSet)
		res.CacheHits++
		trace.Point(tracer, trace.ScopePass, "cache-hit", path, parent)
		for _, decl := range loaded.Components {
			pipeline.Emit(opts.Progress, pipeline.Event{Component: res.Builder.ComponentName(decl), Stage: pipeline.StageCache, Status: pipeline.StatusDone})
		}
	}
	return lb
}

func checkComponent(res *Result, c *ComponentResult, opts Options, tracer trace.Tracer, parent uint64) error {
	pipeline.Emit(opts.Progress, pipeline.Event{Component: c.Name, Stage: pipeline.StageBind, Status: pipeline.StatusWorking})
	start := time.Now()
	binder := &diag.SliceReporter{}
	bound := symbols.Bind(res.Builder, c.Decl, symbols.BindOptions{Reporter: binder})
	c.BindTime = time.Since(start)

	pipeline.Emit(opts.Progress, pipeline.Event{Component: c.Name, Stage: pipeline.StageCheck, Status: pipeline.StatusWorking})
	start = time.Now()
	engine := sema.NewEngine(res.Builder, bound, sema.Options{
		Files:       res.FileSet,
		Strict:      opts.Strict,
		Deprecated:  opts.Deprecated,
		Rules:       opts.Rules,
		Tracer:      tracer,
		TraceParent: parent,
	})
	checked, err := engine.Check(c.Decl)
	c.CheckTime = time.Since(start)

	c.Diagnostics = append(binder.Items, checked.Diagnostics...)
	c.Failures = checked.Failures
	c.Visited = checked.Visited

	status := pipeline.StatusDone
	if err != nil || len(c.Failures) > 0 {
		status = pipeline.StatusError
	}
	pipeline.Emit(opts.Progress, pipeline.Event{
		Component: c.Name,
		Stage:     pipeline.StageCheck,
		Status:    status,
		Err:       err,
		Elapsed:   c.BindTime + c.CheckTime,
	})
	return err
}

// loadDiagnostic reports a bundle that could not be used. The primary span
// points at an empty virtual file named after the bundle.
func loadDiagnostic(fs *source.FileSet, path string, err error) diag.Diagnostic {
	id, ok := fs.GetLatest(path)
	if !ok {
		id = fs.AddVirtual(path, nil)
	}
	code := diag.IOLoadFileError
	if errors.Is(err, bundle.ErrMalformed) {
		code = diag.IOBundleDecode
	}
	return diag.NewError(code, source.Span{File: id}, err.Error())
}

// bundleKey identifies a bundle result: its location, its bytes, the template
// files it loaded (in load order) and the options that shape diagnostics.
func bundleKey(path string, raw []byte, files []source.FileID, fs *source.FileSet, optsKey project.Digest) project.Digest {
	deps := make([]project.Digest, 0, len(files)+2)
	deps = append(deps, project.Sum(raw))
	for _, id := range files {
		if f := fs.Get(id); f != nil {
			deps = append(deps, project.Digest(f.Hash))
		}
	}
	deps = append(deps, optsKey)
	return project.Combine(project.Sum([]byte(path)), deps...)
}

func optionsDigest(opts Options, baseDir string) project.Digest {
	var sb strings.Builder
	fmt.Fprintf(&sb, "schema=%d\x00strict=%t\x00deprecated=%t\x00base=%s",
		cacheSchemaVersion, opts.Strict, opts.Deprecated.Enabled, baseDir)
	for _, pattern := range opts.Deprecated.Exclude {
		sb.WriteString("\x00exclude=" + pattern)
	}
	return project.Sum([]byte(sb.String()))
}

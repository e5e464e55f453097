package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"tplcheck/internal/diag"
	"tplcheck/internal/diagfmt"
	"tplcheck/internal/driver"
	"tplcheck/internal/project"
	"tplcheck/internal/sema"
	"tplcheck/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <bundle|directory>",
	Short: "Check component templates",
	Long: `Check every component of a template bundle (*.tpl.json, *.tpl.msgpack), or of all
bundles below a directory. Exits with status 1 when errors are reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	registerCheckFlags(checkCmd)
}

func registerCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "output format (pretty|json|sarif|short)")
	cmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	cmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	cmd.Flags().Int("jobs", 0, "max parallel component checks (0=auto)")
	cmd.Flags().Bool("sort", false, "order diagnostics by location and drop repeats")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().String("path-mode", "auto", "path rendering (auto|absolute|relative|basename)")
	cmd.Flags().Bool("strict", false, "fail when a rule cannot run instead of skipping it")
	cmd.Flags().Bool("deprecated", false, "report uses of deprecated members")
	cmd.Flags().StringSlice("exclude", nil, "file globs excluded from the deprecated-usage rule")
	cmd.Flags().Bool("cache", false, "reuse results from the on-disk cache")
	cmd.Flags().String("ui", "off", "progress UI (auto|on|off)")
	cmd.Flags().String("config", "", "path to tplcheck.toml (default: search upwards)")
	cmd.Flags().Bool("watch", false, "re-check when bundles or template files change")
}

// checkSettings is the merged result of flags and tplcheck.toml.
type checkSettings struct {
	format    string
	pathMode  diagfmt.PathMode
	withNotes bool
	color     bool
	quiet     bool
	timings   bool
	useCache  bool
	ui        uiMode
	watch     bool
	opts      driver.Options
}

// runCheck executes "check": it merges flags with tplcheck.toml, runs the
// driver (once, or in watch mode until interrupted), renders the diagnostics
// in the chosen format and reports errors through the exit status.
func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()
	defer teardownRun(cmd)

	target := args[0]
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	manifest, err := loadCheckManifest(cmd, target)
	if err != nil {
		return err
	}
	settings, err := resolveCheckSettings(cmd, manifest)
	if err != nil {
		return err
	}

	if settings.useCache {
		cache, cacheErr := driver.OpenDiskCache("tplcheck")
		if cacheErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", cacheErr)
		} else {
			settings.opts.Cache = cache
		}
	}

	out := cmd.OutOrStdout()
	if settings.watch {
		return runWatch(cmd, target, settings)
	}

	var res *driver.Result
	if progressEnabled(settings.ui, settings) {
		res, err = runCheckWithUI(cmd.Context(), "tplcheck "+target, target, settings.opts)
	} else {
		res, err = driver.Check(cmd.Context(), target, settings.opts)
	}
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	if err := renderResult(out, res, settings); err != nil {
		return err
	}
	if settings.timings && !settings.quiet {
		printStageTimings(cmd.ErrOrStderr(), res)
	}
	if res.Bag.HasErrors() {
		return errDiagnostics
	}
	return nil
}

func runWatch(cmd *cobra.Command, target string, settings checkSettings) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	return driver.Watch(ctx, target, settings.opts, driver.DefaultDebounce, func(res *driver.Result, err error) {
		if settings.format == "pretty" && settings.color {
			// clear screen between runs
			fmt.Fprint(out, "\x1b[H\x1b[2J")
		}
		if err != nil {
			fmt.Fprintf(errOut, "check failed: %v\n", err)
			return
		}
		if err := renderResult(out, res, settings); err != nil {
			fmt.Fprintf(errOut, "%v\n", err)
		}
		if !settings.quiet {
			fmt.Fprintf(errOut, "watching %s: %s, %d cached\n", target, plural(errorCount(res.Bag), "error"), res.CacheHits)
		}
	})
}

// loadCheckManifest reads --config, or searches for tplcheck.toml upwards from
// the checked path. A missing file is not an error.
func loadCheckManifest(cmd *cobra.Command, target string) (*project.Manifest, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configPath != "" {
		return project.LoadFile(configPath)
	}
	startDir := target
	if st, err := os.Stat(target); err == nil && !st.IsDir() {
		startDir = filepath.Dir(target)
	}
	manifest, _, err := project.LoadManifest(startDir)
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// setting returns the flag value when it was given explicitly, otherwise the
// config value when the key is present in tplcheck.toml, otherwise the flag default.
func setting[T any](cmd *cobra.Command, name string, get func(string) (T, error), m *project.Manifest, fromConfig T, key ...string) (T, error) {
	v, err := get(name)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !cmd.Flags().Changed(name) && m.IsDefined(key...) {
		return fromConfig, nil
	}
	return v, nil
}

func resolveCheckSettings(cmd *cobra.Command, m *project.Manifest) (checkSettings, error) {
	var cfg project.Config
	if m != nil {
		cfg = m.Config
	}
	flags := cmd.Flags()
	var s checkSettings
	var err error

	if s.format, err = setting(cmd, "format", flags.GetString, m, cfg.Output.Format, "output", "format"); err != nil {
		return s, err
	}
	switch s.format {
	case "pretty", "json", "sarif", "short":
	default:
		return s, fmt.Errorf("unknown format: %s", s.format)
	}
	if s.withNotes, err = setting(cmd, "with-notes", flags.GetBool, m, cfg.Output.WithNotes, "output", "with-notes"); err != nil {
		return s, err
	}
	pathMode, err := setting(cmd, "path-mode", flags.GetString, m, cfg.Output.PathMode, "output", "path-mode")
	if err != nil {
		return s, err
	}
	if s.pathMode, err = diagfmt.ParsePathMode(pathMode); err != nil {
		return s, err
	}
	fullPath, err := flags.GetBool("fullpath")
	if err != nil {
		return s, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if fullPath {
		s.pathMode = diagfmt.PathModeAbsolute
	}

	opts := &s.opts
	if opts.MaxDiagnostics, err = setting(cmd, "max-diagnostics", flags.GetInt, m, cfg.Check.MaxDiagnostics, "check", "max-diagnostics"); err != nil {
		return s, err
	}
	if opts.Jobs, err = setting(cmd, "jobs", flags.GetInt, m, cfg.Check.Jobs, "check", "jobs"); err != nil {
		return s, err
	}
	if opts.Strict, err = setting(cmd, "strict", flags.GetBool, m, cfg.Check.Strict, "check", "strict"); err != nil {
		return s, err
	}
	if s.useCache, err = setting(cmd, "cache", flags.GetBool, m, cfg.Check.Cache, "check", "cache"); err != nil {
		return s, err
	}
	deprecated := sema.DeprecatedOptions{}
	if deprecated.Enabled, err = setting(cmd, "deprecated", flags.GetBool, m, cfg.Rules.Deprecated.Enabled, "rules", "deprecated-usage", "enabled"); err != nil {
		return s, err
	}
	if deprecated.Exclude, err = setting(cmd, "exclude", flags.GetStringSlice, m, cfg.Rules.Deprecated.Exclude, "rules", "deprecated-usage", "exclude"); err != nil {
		return s, err
	}
	opts.Deprecated = deprecated

	if opts.IgnoreWarnings, err = flags.GetBool("no-warnings"); err != nil {
		return s, fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	if opts.WarningsAsErrors, err = flags.GetBool("warnings-as-errors"); err != nil {
		return s, fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if opts.SortByLocation, err = flags.GetBool("sort"); err != nil {
		return s, fmt.Errorf("failed to get sort flag: %w", err)
	}
	if opts.IgnoreWarnings && opts.WarningsAsErrors {
		return s, fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	if s.timings, err = flags.GetBool("timings"); err != nil {
		return s, fmt.Errorf("failed to get timings flag: %w", err)
	}
	opts.EnableTimings = s.timings && s.format != "pretty"
	if s.quiet, err = flags.GetBool("quiet"); err != nil {
		return s, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.watch, err = flags.GetBool("watch"); err != nil {
		return s, fmt.Errorf("failed to get watch flag: %w", err)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return s, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if s.ui, err = readUIMode(uiFlag); err != nil {
		return s, err
	}
	if s.color, err = useColor(cmd); err != nil {
		return s, err
	}
	if m != nil {
		// deprecated-usage excludes are written relative to the project root
		opts.BaseDir = m.Root
	}
	return s, nil
}

func renderResult(w io.Writer, res *driver.Result, s checkSettings) error {
	switch s.format {
	case "pretty":
		diagfmt.Pretty(w, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:     s.color,
			Context:   1,
			PathMode:  s.pathMode,
			ShowNotes: s.withNotes,
		})
		if !s.quiet && !res.Bag.HasErrors() && !res.Bag.HasWarnings() {
			fmt.Fprintf(w, "no problems found in %s\n", plural(len(res.Components)+cachedComponents(res), "component"))
		}
	case "short":
		return diagfmt.Short(w, res.Bag, res.FileSet, s.withNotes)
	case "json":
		if err := diagfmt.JSON(w, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         s.pathMode,
			IncludeNotes:     s.withNotes,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "sarif":
		if err := diagfmt.Sarif(w, res.Bag, res.FileSet, diagfmt.SarifRunMeta{
			ToolName:    "tplcheck",
			ToolVersion: version.Version,
			PathMode:    s.pathMode,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", s.format)
	}
	return nil
}

func cachedComponents(res *driver.Result) int {
	n := 0
	for _, b := range res.Bundles {
		if b.Cached {
			n += len(b.Components)
		}
	}
	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func errorCount(bag *diag.Bag) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Severity == diag.SevError {
			n++
		}
	}
	return n
}

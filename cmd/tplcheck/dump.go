package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tplcheck/internal/ast"
	"tplcheck/internal/bundle"
	"tplcheck/internal/diagfmt"
	"tplcheck/internal/source"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <bundle>",
	Short: "Print the template trees of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "pretty", "output format (pretty|tree|json)")
	dumpCmd.Flags().String("component", "", "only dump the named component")
}

func runDump(cmd *cobra.Command, args []string) error {
	defer teardownRun(cmd)

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	only, err := cmd.Flags().GetString("component")
	if err != nil {
		return fmt.Errorf("failed to get component flag: %w", err)
	}
	var render func(w io.Writer, builder *ast.Builder, decl ast.ComponentID, fs *source.FileSet) error
	switch format {
	case "pretty":
		render = diagfmt.FormatTemplatePretty
	case "tree":
		render = diagfmt.FormatTemplateTree
	case "json":
		render = func(w io.Writer, builder *ast.Builder, decl ast.ComponentID, _ *source.FileSet) error {
			return diagfmt.FormatTemplateJSON(w, builder, decl)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	fs := source.NewFileSet()
	builder := ast.NewBuilder(ast.Hints{}, nil)
	loaded, err := bundle.Load(args[0], fs, builder)
	if err != nil {
		return err
	}
	return dumpComponents(cmd.OutOrStdout(), builder, fs, loaded.Components, only, render)
}

func dumpComponents(w io.Writer, builder *ast.Builder, fs *source.FileSet, decls []ast.ComponentID, only string,
	render func(io.Writer, *ast.Builder, ast.ComponentID, *source.FileSet) error) error {
	found := false
	for _, decl := range decls {
		if only != "" && builder.ComponentName(decl) != only {
			continue
		}
		if found {
			fmt.Fprintln(w)
		}
		found = true
		if err := render(w, builder, decl, fs); err != nil {
			return fmt.Errorf("dump %s: %w", builder.ComponentName(decl), err)
		}
	}
	if only != "" && !found {
		return fmt.Errorf("component %q not found", only)
	}
	return nil
}

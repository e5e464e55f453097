package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tplcheck/internal/ast"
	"tplcheck/internal/bundle"
	"tplcheck/internal/source"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a bundle between JSON and msgpack",
	Long: `Convert a template bundle between *.tpl.json and *.tpl.msgpack. The codec of each
side is chosen by its suffix. The bundle is validated before it is written.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().Bool("no-validate", false, "skip lowering the bundle before writing it")
}

func runConvert(cmd *cobra.Command, args []string) error {
	defer teardownRun(cmd)

	noValidate, err := cmd.Flags().GetBool("no-validate")
	if err != nil {
		return fmt.Errorf("failed to get no-validate flag: %w", err)
	}
	return convertBundle(args[0], args[1], !noValidate)
}

func convertBundle(in, out string, validate bool) error {
	format, ok := bundle.DetectFormat(out)
	if !ok {
		return fmt.Errorf("%s: output must end in %s or %s", out, bundle.JSONSuffix, bundle.MsgpackSuffix)
	}
	b, _, err := bundle.Read(in)
	if err != nil {
		return err
	}
	if validate {
		// template files are resolved next to the input bundle
		if _, err := bundle.Load(in, source.NewFileSet(), ast.NewBuilder(ast.Hints{}, nil)); err != nil {
			return err
		}
	}
	data, err := bundle.Encode(b, format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

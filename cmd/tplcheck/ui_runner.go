package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tplcheck/internal/driver"
	"tplcheck/internal/pipeline"
	"tplcheck/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// progressEnabled decides whether the progress view runs. It draws on stderr
// and clears itself on exit, so it only goes with a single pretty run; "on"
// cannot force it into watch mode or under a machine format.
func progressEnabled(mode uiMode, s checkSettings) bool {
	if s.watch || s.format != "pretty" {
		return false
	}
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	return !s.quiet && isTerminal(os.Stderr)
}

type checkOutcome struct {
	result *driver.Result
	err    error
}

// runCheckWithUI runs driver.Check while a progress view consumes its events.
// The view lists bundles first; components appear as they are reported.
func runCheckWithUI(ctx context.Context, title, target string, opts driver.Options) (*driver.Result, error) {
	bundles, err := driver.ListBundles(target)
	if err != nil {
		return nil, err
	}
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := driver.Check(ctx, target, optsCopy)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, bundles, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

package diag

import (
	"fmt"
	"slices"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Semantic rules over template bindings
	SemaInfo            Code = 3000
	SemaReadOnlyWrite   Code = 3001
	SemaDeprecatedUsage Code = 3002
	SemaDuplicateDecl   Code = 3003

	// Input loading
	IOInfo          Code = 4000
	IOLoadFileError Code = 4001
	IOBundleDecode  Code = 4002

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:         "Unknown error",
		SemaInfo:            "Semantic information",
		SemaReadOnlyWrite:   "Write to read-only template variable",
		SemaDeprecatedUsage: "Usage of deprecated declaration",
		SemaDuplicateDecl:   "Duplicate template declaration",
		IOInfo:              "I/O information",
		IOLoadFileError:     "Failed to load file",
		IOBundleDecode:      "Malformed template bundle",
		ObsInfo:             "Observability information",
		ObsTimings:          "Pipeline timings",
	}
)

// ID returns the stable textual identifier, e.g. SEM3001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// KnownCodes lists every code with a description, ordered by value.
func KnownCodes() []Code {
	out := make([]Code, 0, len(codeDescription))
	for c := range codeDescription {
		if c != UnknownCode {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

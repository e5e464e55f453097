package driver

import (
	"encoding/json"
	"fmt"

	"tplcheck/internal/diag"
	"tplcheck/internal/observ"
	"tplcheck/internal/source"
)

type timingPayload struct {
	Kind       string               `json:"kind"`
	Path       string               `json:"path,omitempty"`
	TotalMS    float64              `json:"total_ms"`
	Components int                  `json:"components"`
	CacheHits  int                  `json:"cache_hits,omitempty"`
	Phases     []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic adds an OBS6001 entry whose single note carries the
// JSON timing report. It bypasses the bag limit so timings are never dropped.
func appendTimingDiagnostic(bag *diag.Bag, primary source.Span, payload timingPayload) {
	if bag == nil {
		return
	}
	if payload.Kind == "" {
		payload.Kind = "check"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	if payload.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, payload.Path)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.New(diag.SevInfo, diag.ObsTimings, primary, msg).WithNote(primary, string(data))
	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}

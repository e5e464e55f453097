package main

import (
	"fmt"
	"io"
	"time"

	"tplcheck/internal/driver"
	"tplcheck/internal/pipeline"
)

// printStageTimings writes per-stage totals summed over components, then the
// driver phase table.
func printStageTimings(out io.Writer, res *driver.Result) {
	if out == nil || res == nil {
		return
	}
	timings := res.Timings
	if timings.Has(pipeline.StageLoad) {
		fmt.Fprintf(out, "loaded %.1f ms\n", toMillis(timings.Duration(pipeline.StageLoad)))
	}
	if timings.Has(pipeline.StageBind) || timings.Has(pipeline.StageCheck) {
		fmt.Fprintf(out, "bound %.1f ms, checked %.1f ms (%s, summed over workers)\n",
			toMillis(timings.Duration(pipeline.StageBind)),
			toMillis(timings.Duration(pipeline.StageCheck)),
			plural(len(res.Components), "component"))
	}
	if res.CacheHits > 0 {
		fmt.Fprintf(out, "cached %s\n", plural(res.CacheHits, "bundle"))
	}
	for _, p := range res.Report.Phases {
		fmt.Fprintf(out, "  %-12s %7.2f ms", p.Name, p.DurationMS)
		if p.Items > 0 {
			fmt.Fprintf(out, "  [%d]", p.Items)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %-12s %7.2f ms\n", "total", res.Report.TotalMS)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

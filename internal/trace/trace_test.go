package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeComponent, false},
		{LevelDetail, ScopeComponent, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.level, tc.scope, tc.want, got)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if lvl, err := ParseLevel("DETAIL"); err != nil || lvl != LevelDetail {
		t.Fatalf("expected detail, got %v (%v)", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if mode, err := ParseMode("both"); err != nil || mode != ModeBoth {
		t.Fatalf("expected both, got %v (%v)", mode, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("expected ndjson, got %v (%v)", f, err)
	}
}

func TestStreamTracerTextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopePass, "check", 0)
	Begin(tr, ScopeComponent, "component:App", span.ID()).End("")
	span.WithExtra("components", "2").WithExtra("cached", "0").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ check") || !strings.Contains(out, "← check (ok) {cached=0, components=2}") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}
	if strings.Contains(out, "component:App") {
		t.Fatalf("component events must be filtered at phase level:\n%s", out)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeNode, "rule-failed", "deprecated-usage", 7)

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if ev["kind"] != "point" || ev["scope"] != "node" || ev["detail"] != "deprecated-usage" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestRingTracerWrapsAndKeepsEverythingAtErrorLevel(t *testing.T) {
	ring := NewRingTracer(2, LevelError)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeNode, name, "", 0)
	}
	events := ring.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("expected [b c], got %+v", events)
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected 2 dumped lines, got %q", buf.String())
	}
}

func TestNewAndContext(t *testing.T) {
	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Enabled() {
		t.Fatalf("expected disabled tracer, got %v (%v)", off, err)
	}

	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := RingOf(tr); !ok {
		t.Fatalf("expected a ring in both mode")
	}

	ctx := WithTracer(context.Background(), tr)
	if FromContext(ctx) != tr {
		t.Fatalf("expected tracer from context")
	}
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop without tracer")
	}

	span := Begin(tr, ScopeDriver, "run", 0)
	if got := CurrentSpan(ContextWithSpan(ctx, span)); got.SpanID != span.ID() {
		t.Fatalf("expected span %d in context, got %d", span.ID(), got.SpanID)
	}
}

func TestHeartbeatEmitsUntilStopped(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("expected no heartbeat for a disabled tracer")
	}
	ring := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	events := ring.Snapshot()
	if len(events) == 0 {
		t.Fatalf("expected at least one heartbeat")
	}
	if events[0].Kind != KindHeartbeat || !strings.HasPrefix(events[0].Detail, "#1 after ") {
		t.Fatalf("unexpected heartbeat %+v", events[0])
	}
	after := len(ring.Snapshot())
	time.Sleep(5 * time.Millisecond)
	if got := len(ring.Snapshot()); got != after {
		t.Fatalf("expected no heartbeats after Stop, got %d more", got-after)
	}
}

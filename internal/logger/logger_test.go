package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
		want   string
	}{
		{in: "debug", wantOK: true, want: "debug"},
		{in: "INFO", wantOK: true, want: "info"},
		{in: " warn ", wantOK: true, want: "warn"},
		{in: "warning", wantOK: true, want: "warn"},
		{in: "error", wantOK: true, want: "error"},
		{in: "fatal"},
		{in: "verbose"},
		{in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lvl, ok := parseLevel(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("parseLevel(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && lvl.String() != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.in, lvl, tt.want)
			}
		})
	}
}

func TestNamedAndWithCarryFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := wrap(zap.New(core)).Named("storage").With(String("db", "bookmarks.db"))

	l.Info("opened", Int64("size", 42), Bool("durable", true))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "storage" || e.Message != "opened" {
		t.Errorf("entry = %q/%q", e.LoggerName, e.Message)
	}
	fields := e.ContextMap()
	if fields["db"] != "bookmarks.db" || fields["size"] != int64(42) || fields["durable"] != true {
		t.Errorf("fields = %v", fields)
	}
}

func TestNop(t *testing.T) {
	l := Nop().Named("test").With(Int("n", 1))
	l.Info("discarded")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() on nop logger returned %v", err)
	}
}

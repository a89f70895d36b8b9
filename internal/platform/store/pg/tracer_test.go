package pg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"firewatch/internal/platform/logger"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func testLogger(w io.Writer) logger.Logger {
	if w == nil {
		w = io.Discard
	}
	return zerolog.New(w).Level(zerolog.ErrorLevel)
}

type sqlLine struct {
	Level     string  `json:"level"`
	Component string  `json:"component"`
	Op        string  `json:"op"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Slow      bool    `json:"slow"`
	SQL       string  `json:"sql"`
	Args      []any   `json:"args"`
	Error     string  `json:"error"`
	Message   string  `json:"message"`
}

func decodeLine(t *testing.T, buf *bytes.Buffer) sqlLine {
	t.Helper()
	var l sqlLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &l); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	buf.Reset()
	return l
}

func TestOneLine(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                                     "SELECT 1",
		"  SELECT\n\t id\r\n FROM   incidents  ":       "SELECT id FROM incidents",
		"UPDATE detections\n   SET incident_id = $1\n": "UPDATE detections SET incident_id = $1",
		"": "",
	}
	for in, want := range cases {
		if got := oneLine(in); got != want {
			t.Fatalf("oneLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTracer_LogsBelowRootLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := Tracer(testLogger(&buf))

	ev := QueryEvent{
		SQL:       "SELECT id\n  FROM incidents\n WHERE status = $1",
		Args:      []any{"active"},
		ElapsedUS: 2500,
		Err:       errors.New("boom"),
	}
	tr.OnQuery(WithOp(context.Background(), "lifecycle.sweep"), ev)

	l := decodeLine(t, &buf)
	if l.Level != "info" || l.Message != "pg query" || l.Component != "pg" {
		t.Fatalf("line = %+v", l)
	}
	if l.Op != "lifecycle.sweep" || l.SQL != "SELECT id FROM incidents WHERE status = $1" {
		t.Fatalf("op/sql = %q %q", l.Op, l.SQL)
	}
	if l.ElapsedMS != 2.5 || l.Error != "boom" || len(l.Args) != 1 || l.Args[0] != "active" {
		t.Fatalf("fields = %+v", l)
	}

	ev.Slow, ev.Err = true, nil
	tr.OnQuery(context.Background(), ev)
	l = decodeLine(t, &buf)
	if l.Level != "warn" || !l.Slow || l.Op != "" || l.Error != "" {
		t.Fatalf("slow line = %+v", l)
	}
}

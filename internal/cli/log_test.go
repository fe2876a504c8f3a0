package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

func TestConfigureLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		format    string
		wantDebug bool
		want      string
	}{
		{"text info", false, "text", false, "INFO"},
		{"text verbose", true, "text", true, "DEBU"},
		{"json verbose", true, "JSON", true, `"level":"debug"`},
		{"logfmt", true, "logfmt", true, "level=debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := New(&buf, LogInfo)
			if err := c.configureLogger(tt.verbose, tt.format); err != nil {
				t.Fatalf("configureLogger() error: %v", err)
			}
			c.Logger.Debug("layout pass", "nodes", 3)
			c.Logger.Info("exported")

			out := buf.String()
			if got := strings.Contains(out, "layout pass"); got != tt.wantDebug {
				t.Errorf("debug line logged = %v, want %v\n%s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestConfigureLoggerUnknownFormat(t *testing.T) {
	c := New(io.Discard, LogInfo)
	if err := c.configureLogger(false, "xml"); !mmerrors.Is(err, mmerrors.ErrCodeInvalidInput) {
		t.Errorf("configureLogger(xml) = %v, want INVALID_INPUT", err)
	}
}

func TestRootCommandLogFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		args []string
		want log.Level
		err  bool
	}{
		{[]string{"config", "path"}, log.InfoLevel, false},
		{[]string{"-v", "config", "path"}, log.DebugLevel, false},
		{[]string{"--verbose", "--log-format", "json", "config", "path"}, log.DebugLevel, false},
		{[]string{"--log-format", "yaml", "config", "path"}, log.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			c := New(io.Discard, LogInfo)
			root := c.RootCommand()
			root.SetArgs(tt.args)
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)

			err := root.Execute()
			if (err != nil) != tt.err {
				t.Fatalf("Execute() error = %v, want error %v", err, tt.err)
			}
			if got := c.Logger.GetLevel(); got != tt.want {
				t.Errorf("log level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Exported files", "count", 3)

	out := buf.String()
	for _, want := range []string{"Exported files", "count=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("done() output missing %q: %s", want, out)
		}
	}
}

func TestRequestLoggingTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, log.DebugLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggerFromContext(r.Context()).Info("loading diagram")
		w.WriteHeader(http.StatusNoContent)
	})
	h := middleware.RequestID(requestLogging(base)(inner))

	req := httptest.NewRequest(http.MethodDelete, "/api/diagrams/cells", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines, want handler and request lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "loading diagram") || !strings.Contains(lines[0], "req=req-42") {
		t.Errorf("handler line = %q, want request ID", lines[0])
	}
	for _, want := range []string{"req=req-42", "method=DELETE", "status=204"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("request line = %q, missing %q", lines[1], want)
		}
	}
}

func TestLoggerFromContextDefault(t *testing.T) {
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Errorf("loggerFromContext() = %p, want log.Default()", got)
	}
	l := newLogger(io.Discard, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Errorf("loggerFromContext() = %p, want attached logger %p", got, l)
	}
}

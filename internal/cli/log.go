// Package cli implements the mindmap command-line interface.
//
// This package provides commands for turning outlines into laid-out mind
// maps, exploring them in the terminal, asking follow-up questions about
// nodes, exporting them, and managing stored diagrams and the answer
// cache. The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - parse: Build an outline document from markdown, YAML or a service
//   - layout: Compute node positions and write the positioned document
//   - export: Render PNG, PDF, SVG, JSON, text or DOT, optionally on change
//   - ask: Insert a follow-up question beneath a node and fetch its answer
//   - view: Explore a diagram interactively in the terminal
//   - serve: Expose stored diagrams over HTTP
//   - store, cache, config: Manage persistence, cached answers and settings
//
// # Inputs
//
// Commands that read a diagram accept a file path (.json, .yaml, .md or
// any indented text) or "store:<id>" to use the configured store.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --log-format to switch between text, JSON and logfmt lines. The HTTP
// server tags each request's logger with its request ID and passes it to
// handlers through context.Context.
package cli

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// logFormats maps --log-format values to formatters.
var logFormats = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// newLogger creates a text logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// configureLogger applies --verbose and --log-format to c.Logger.
func (c *CLI) configureLogger(verbose bool, format string) error {
	f, ok := logFormats[strings.ToLower(format)]
	if !ok {
		return mmerrors.New(mmerrors.ErrCodeInvalidInput, "unknown log format %q (want text, json or logfmt)", format)
	}
	c.Logger.SetFormatter(f)
	c.Logger.SetLevel(levelFor(verbose))
	return nil
}

func levelFor(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// progress logs how long a command step took. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time, e.g.
// "Exported files count=3 elapsed=12ms".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() when
// none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// requestLogging gives each request a logger tagged with its chi request
// ID and logs the request at debug level once it completes. It must run
// after middleware.RequestID.
func requestLogging(base *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			logger := base.With("req", middleware.GetReqID(r.Context()))
			next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), logger)))
			logger.Debug("request", "method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "duration", time.Since(start).Round(time.Microsecond))
		})
	}
}

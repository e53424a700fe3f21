// Package logging builds the process logger and the HTTP access-log middleware.
package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to out. An empty format picks text when out
// is a terminal and JSON otherwise.
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl := logrus.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	l.SetLevel(lvl)

	if format == "" {
		format = FormatJSON
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = FormatText
		}
	}
	switch strings.ToLower(format) {
	case FormatText:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("log format %q: want %q or %q", format, FormatText, FormatJSON)
	}
	return l, nil
}

// AccessLog logs one line per request after it completes.
func AccessLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				entry := log.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"status":   status,
					"bytes":    ww.BytesWritten(),
					"duration": time.Since(start).String(),
					"remote":   r.RemoteAddr,
				})
				if id := middleware.GetReqID(r.Context()); id != "" {
					entry = entry.WithField("request_id", id)
				}
				if status >= http.StatusInternalServerError {
					entry.Warn("request")
				} else {
					entry.Info("request")
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

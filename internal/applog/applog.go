// Package applog writes structured event lines to a rotating log file.
// All calls are no-ops until Init or SetOutput is called.
package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB   = 5
	maxBackups  = 3
	maxAgeDays  = 28
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu  sync.Mutex
	out io.Writer
)

// Init opens <dir>/tabgruppen.log for appending, rotating it at 5 MB.
func Init(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "tabgruppen.log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	SetOutput(w)
	return nil
}

// SetOutput redirects log lines to w. A nil w disables logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if c, ok := out.(io.Closer); ok {
		c.Close()
	}
	out = nil
}

// Info logs a structured event line.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("organize.done", "created", 2, "ungrouped", 1)
func Info(event string, kv ...any) {
	write("INFO", event, nil, kv)
}

// Warn logs a recoverable problem, typically a skipped item.
//
//	applog.Warn("reconcile.skip", err, "op", "ungroup", "tab", 12)
func Warn(event string, err error, kv ...any) {
	write("WARN", event, err, kv)
}

// Error logs an event with an error.
//
//	applog.Error("ws.send", err, "action", "tabs.group")
func Error(event string, err error, kv ...any) {
	write("ERROR", event, err, kv)
}

func write(level, event string, err error, kv []any) {
	mu.Lock()
	enabled := out != nil
	mu.Unlock()
	if !enabled {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(event)

	if err != nil {
		b.WriteString(" err=")
		b.WriteString(quote(err.Error()))
	}

	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(kv[i]))
		b.WriteByte('=')
		b.WriteString(quote(fmt.Sprint(kv[i+1])))
	}
	b.WriteByte('\n')

	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		io.WriteString(out, b.String())
	}
}

func quote(s string) string {
	if len(s) > maxValueLen {
		s = s[:maxValueLen] + truncSuffix
	}
	if strings.ContainsAny(s, " \t\n\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
	}
	return s
}

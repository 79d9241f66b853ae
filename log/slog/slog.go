// Package slog adapts a *log/slog.Logger to bakecache.Logger.
package slog

import (
	"context"
	"fmt"
	stdslog "log/slog"
	"sort"

	"github.com/unkn0wn-root/bakecache"
)

var _ bakecache.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

func New(l *stdslog.Logger) Logger {
	return Logger{L: l.WithGroup("bakecache")}
}

func (s Logger) Debug(msg string, f bakecache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f bakecache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f bakecache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f bakecache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(lvl stdslog.Level, msg string, f bakecache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, lvl) {
		return
	}
	s.L.LogAttrs(ctx, lvl, msg, attrs(f)...)
}

func attrs(f bakecache.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range names {
		switch v := f[k].(type) {
		case error:
			out = append(out, stdslog.String(k, v.Error()))
		case fmt.Stringer:
			out = append(out, stdslog.String(k, v.String()))
		default:
			out = append(out, stdslog.Any(k, v))
		}
	}
	return out
}

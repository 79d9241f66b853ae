// Package zap adapts a *zap.Logger to bakecache.Logger.
package zap

import (
	"fmt"
	"sort"

	"github.com/unkn0wn-root/bakecache"
	"go.uber.org/zap"
)

type Logger struct{ L *zap.Logger }

var _ bakecache.Logger = Logger{}

// New names the logger "bakecache" so cache events can be filtered.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("bakecache")} }

func (z Logger) Debug(msg string, f bakecache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f bakecache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f bakecache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f bakecache.Fields) { z.L.Error(msg, fields(f)...) }

// fields emits keys in sorted order; errors and stringers (cache keys, pool
// sizes) are typed so encoders do not fall back to reflection.
func fields(f bakecache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]zap.Field, 0, len(f))
	for _, k := range names {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case fmt.Stringer:
			out = append(out, zap.Stringer(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

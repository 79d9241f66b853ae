// Package logrus adapts a *logrus.Entry to bakecache.Logger.
package logrus

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/bakecache"
)

type Logger struct{ E *logrus.Entry }

var _ bakecache.Logger = Logger{}

func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "bakecache")}
}

func (l Logger) Debug(msg string, f bakecache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f bakecache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f bakecache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f bakecache.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f bakecache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		switch v := v.(type) {
		case error:
			// "error" is logrus' ErrorKey; keep the caller's name
			out[k] = v.Error()
		case fmt.Stringer:
			out[k] = v.String()
		default:
			out[k] = v
		}
	}
	return l.E.WithFields(out)
}

// Package logrus adapts logrus to entrycache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/entrycache"
)

var _ entrycache.Logger = LogrusLogger{}

// LogrusLogger accepts a *logrus.Logger or a *logrus.Entry.
type LogrusLogger struct{ E logrus.FieldLogger }

func (l LogrusLogger) Debug(msg string, f entrycache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f entrycache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f entrycache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f entrycache.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f entrycache.Fields) logrus.FieldLogger {
	if len(f) == 0 {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if k == "err" {
			k = logrus.ErrorKey
		}
		fields[k] = v
	}
	return l.E.WithFields(fields)
}

// Package logging provides the leveled diagnostics interface spec.md
// §6.4 names (DEBUG/INFO/NOTICE/WARNING/ERR), grounded on the teacher's
// infrastructure/logging.LogLogger adapter shape (one small interface,
// one constructor, one struct implementing it) but backed by logrus
// since the teacher's own logger has no levels at all.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the diagnostics sink every component in the tunnel depends
// on. It mirrors spec.md §6.4's level set exactly; NOTICE has no direct
// logrus equivalent so it is modeled as Info with a "level" field set to
// NOTICE, which preserves the distinct log line operators can grep for.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Noticef(format string, args ...any)
	Warnf(format string, args ...any)
	Errf(format string, args ...any)
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New constructs the default Logger, writing text-formatted lines to
// stderr at the given minimum level.
func New(level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// With returns a Logger that annotates every line with the given fields,
// used to tag a Session's log lines with its correlation id.
func With(base Logger, fields map[string]any) Logger {
	ll, ok := base.(*logrusLogger)
	if !ok {
		return base
	}
	f := make(logrus.Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &logrusLogger{entry: ll.entry.WithFields(f)}
}

func (l *logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errf(format string, args ...any)   { l.entry.Errorf(format, args...) }

func (l *logrusLogger) Noticef(format string, args ...any) {
	l.entry.WithField("level", "NOTICE").Infof(format, args...)
}

package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	User *UserLogger // Clean run progress for users (stdout)
	Op   *OpLogger   // Detailed operational logs (stderr)
)

// init ensures loggers are never nil
func init() {
	l := GetLogger().GetInternalLogger()
	User = &UserLogger{logger: l}
	Op = &OpLogger{logger: l}
}

type UserLogger struct {
	logger *logrus.Logger
}

type OpLogger struct {
	logger *logrus.Logger
}

func (u *UserLogger) entry(marker string) *logrus.Entry {
	fields := logrus.Fields{"log_type": string(UserLog)}
	if marker != "" {
		fields["marker"] = marker
	}
	return u.logger.WithFields(fields)
}

func (u *UserLogger) Info(msg string) {
	u.entry("").Info(msg)
}

func (u *UserLogger) Infof(format string, args ...interface{}) {
	u.entry("").Infof(format, args...)
}

func (u *UserLogger) Errorf(format string, args ...interface{}) {
	u.entry(MarkerFailed).Errorf(format, args...)
}

func (u *UserLogger) Warnf(format string, args ...interface{}) {
	u.entry(MarkerWarning).Warnf(format, args...)
}

// Startingf announces the beginning of a run or task
func (u *UserLogger) Startingf(format string, args ...interface{}) {
	u.entry(MarkerStarting).Infof(format, args...)
}

func (u *UserLogger) Successf(format string, args ...interface{}) {
	u.entry(MarkerSuccess).Infof(format, args...)
}

// Skippedf reports a task whose criteria were not met
func (u *UserLogger) Skippedf(format string, args ...interface{}) {
	u.entry(MarkerSkipped).Infof(format, args...)
}

// Lifecyclef reports setup and teardown progress
func (u *UserLogger) Lifecyclef(format string, args ...interface{}) {
	u.entry(MarkerLifecycle).Infof(format, args...)
}

func (o *OpLogger) entry() *logrus.Entry {
	return o.logger.WithField("log_type", string(OpLog))
}

func (o *OpLogger) Debug(msg string) {
	o.entry().Debug(msg)
}

// WithTask returns an op entry scoped to one task of one run
func (o *OpLogger) WithTask(task, runID string) *logrus.Entry {
	return o.WithFields(map[string]interface{}{
		"task":   task,
		"run_id": runID,
	})
}

func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["log_type"] = string(OpLog)
	return o.logger.WithFields(fields)
}

// CLIFormatter provides clean output for CLI applications
type CLIFormatter struct {
	DisableTimestamp bool
	DisableLevel     bool
	DisableColors    bool
}

func (f *CLIFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if f.DisableLevel && f.DisableTimestamp {
		b.WriteString(entry.Message)
		b.WriteByte('\n')
		return b.Bytes(), nil
	}

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format("15:04:05"))
		b.WriteString(" ")
	}

	if !f.DisableLevel {
		writeLevel(&b, entry.Level, !f.DisableColors)
	}

	b.WriteString(entry.Message)
	writeFields(&b, entry.Data)

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func writeLevel(b *bytes.Buffer, level logrus.Level, colors bool) {
	levelColor := ""
	resetColor := ""
	if colors {
		switch level {
		case logrus.ErrorLevel:
			levelColor = "\033[31m"
		case logrus.WarnLevel:
			levelColor = "\033[33m"
		case logrus.InfoLevel:
			levelColor = "\033[36m"
		case logrus.DebugLevel:
			levelColor = "\033[37m"
		}
		resetColor = "\033[0m"
	}

	b.WriteString(levelColor)
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString(resetColor)
	b.WriteString(": ")
}

// writeFields appends key=value pairs in key order, skipping routing fields
func writeFields(b *bytes.Buffer, data logrus.Fields) {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "log_type" || k == "marker" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, data[k]))
	}
}

func Setup(verbose bool, jsonLogs bool, quiet bool) {
	SetupWithWriters(verbose, jsonLogs, quiet, os.Stdout, os.Stderr)
}

// SetupWithWriters configures the loggers with explicit user and op outputs.
// Environment variables LOG_MODE and LOG_FORMAT override the flags.
func SetupWithWriters(verbose bool, jsonLogs bool, quiet bool, userOut, opOut io.Writer) {
	if envLogMode := os.Getenv("LOG_MODE"); envLogMode != "" {
		switch envLogMode {
		case "quiet":
			quiet = true
			verbose = false
		case "verbose", "debug":
			verbose = true
			quiet = false
		}
	}

	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		switch envLogFormat {
		case "json":
			jsonLogs = true
		case "text":
			jsonLogs = false
		}
	}

	ul := GetLogger()
	internalLogger := ul.GetInternalLogger()

	var level logrus.Level
	if quiet {
		level = logrus.ErrorLevel
	} else if verbose {
		level = logrus.DebugLevel
	} else {
		level = logrus.InfoLevel
	}

	internalLogger.Hooks = make(logrus.LevelHooks)
	internalLogger.SetOutput(io.Discard) // Output handled by hooks
	internalLogger.SetLevel(level)

	hook := NewOutputRouterHook()
	hook.UserWriter = userOut
	hook.OpWriter = opOut

	if jsonLogs {
		internalLogger.SetFormatter(&logrus.JSONFormatter{})
		hook.UserFormatter = &logrus.JSONFormatter{}
		hook.OpFormatter = &logrus.JSONFormatter{}
	} else {
		internalLogger.SetFormatter(&logrus.TextFormatter{})
		hook.UserFormatter = &CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
		}
		if verbose {
			hook.OpFormatter = &logrus.TextFormatter{
				FullTimestamp: true,
				ForceColors:   isTerminal(opOut),
			}
		} else {
			hook.OpFormatter = &CLIFormatter{
				DisableTimestamp: true,
				DisableColors:    !isTerminal(opOut),
			}
		}
	}

	internalLogger.AddHook(hook)

	User = &UserLogger{logger: internalLogger}
	Op = &OpLogger{logger: internalLogger}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger will create a new logger implementation.
// An unknown level is an error so the CLI can report it instead of exiting from here.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) (*LoggerImpl, error) {
	l := log.New()
	l.SetOutput(os.Stderr)
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("error setting up logging: %w", err)
	}
	l.SetLevel(logLevel)
	entry := l.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: entry, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}, nil
}

// MustNewLogger is NewLogger for callers that have already validated the level, like tests.
func MustNewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	l, err := NewLogger(serviceName, level, stackDumpOnPanic)
	if err != nil {
		panic(err)
	}
	return l
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace if the user asked for stack dumps).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic logs the message and panics with the *logrus.Entry.
// Components rely on this: their PanicHandlerFunc recovers the entry and turns it into an error.
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else {
		l.Logger.Panic(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1).
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	l.Logger.Logger.SetOutput(writer)
}

// SetFormatter switches between JSON and text output.
func (l *LoggerImpl) SetFormatter(useJson bool) {
	if useJson {
		l.Logger.Logger.SetFormatter(&log.JSONFormatter{})
	} else {
		l.Logger.Logger.SetFormatter(&log.TextFormatter{})
	}
}

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/epsim/core/logger"
)

var (
	outMu  sync.RWMutex
	output io.Writer = os.Stdout
)

// SetOutput redirects loggers created afterwards. The console uses it to keep
// log lines from clobbering the prompt.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	output = w
}

func currentOutput() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	return output
}

// SetLevel sets the global zerolog threshold.
func SetLevel(level corelogger.Level) error {
	switch level {
	case corelogger.LevelDebug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case corelogger.LevelInfo, "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case corelogger.LevelWarn:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case corelogger.LevelError:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	return newZerolog(currentOutput(), component)
}

func newZerolog(w io.Writer, component string) *ZerologLogger {
	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

package diag

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologSink writes events through a zerolog logger, tagging each with
// the emitting component.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerolog creates a JSON sink writing to w at the given level.
func NewZerolog(w io.Writer, level zerolog.Level) *ZerologSink {
	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &ZerologSink{logger: logger}
}

// NewConsole creates a human-readable sink on stderr.
func NewConsole(level zerolog.Level) *ZerologSink {
	return NewZerolog(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// New builds a sink from a format name ("console" or "json") and a level
// name understood by zerolog.ParseLevel.
func New(w io.Writer, format, level string) (*ZerologSink, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if format == "console" {
		return NewZerolog(zerolog.ConsoleWriter{Out: w}, lvl), nil
	}
	return NewZerolog(w, lvl), nil
}

func (z *ZerologSink) Debug(component, message string, fields Fields) {
	event := z.logger.Debug().Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (z *ZerologSink) Info(component, message string, fields Fields) {
	event := z.logger.Info().Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (z *ZerologSink) Warn(component, message string, fields Fields) {
	event := z.logger.Warn().Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (z *ZerologSink) Error(component string, err error, fields Fields) {
	event := z.logger.Error().Str("component", component).Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg("operation failed")
}

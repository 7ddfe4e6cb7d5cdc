package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses text or json; empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %q", s)
	}
}

// Options configures New.
type Options struct {
	// Spec is a log spec as accepted by ParseSpec.
	Spec string
	// Format is the output encoding.
	Format Format
	// Output defaults to os.Stderr so logs never mix with command output.
	Output io.Writer
}

// New returns a logger with per-component filtering.
func New(opts Options) (*slog.Logger, error) {
	spec, err := ParseSpec(opts.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid log spec: %w", err)
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	// The inner handler accepts everything; filteringHandler decides.
	handlerOpts := &slog.HandlerOptions{Level: LevelTrace.ToSlog()}
	var inner slog.Handler
	switch opts.Format {
	case FormatJSON:
		inner = slog.NewJSONHandler(output, handlerOpts)
	default:
		inner = slog.NewTextHandler(output, handlerOpts)
	}
	return slog.New(NewFilteringHandler(inner, &spec)), nil
}

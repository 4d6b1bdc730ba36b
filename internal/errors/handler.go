package errors

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"cloudkit/internal/ui"
)

// ErrorHandler records failures as JSON log entries and renders them for the user.
type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	logFile, err := openLogFile()
	if err != nil {
		return nil, err
	}
	return newErrorHandler(logFile, ui.NewConsole()), nil
}

func newErrorHandler(w io.Writer, console *ui.Console) *ErrorHandler {
	return &ErrorHandler{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
		console: console,
	}
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		h.logStructuredError(cloudErr)
		h.console.PrintError(h.console.FormatErrorMessage(cloudErr.Context, cloudErr.Cause, cloudErr.Suggestion))
		return
	}

	h.logger.Error("Unhandled error occurred",
		"error", err.Error(),
		"type", "generic",
	)
	h.console.PrintError(err.Error())
}

func (h *ErrorHandler) logStructuredError(err *CloudError) {
	attrs := []slog.Attr{
		slog.String("error", err.Error()),
		slog.String("type", errorTypeName(err.Type)),
	}
	if err.Provider != "" {
		attrs = append(attrs, slog.String("provider", err.Provider))
	}
	if err.Operation != "" {
		attrs = append(attrs, slog.String("operation", err.Operation))
	}
	if err.Context != "" {
		attrs = append(attrs, slog.String("context", err.Context))
	}
	if err.Cause != "" {
		attrs = append(attrs, slog.String("cause", err.Cause))
	}

	h.logger.LogAttrs(context.TODO(), slog.LevelError, "Cloud error occurred", attrs...)
}

func errorTypeName(errType error) string {
	switch errType {
	case ErrInvalidType:
		return "invalid_type"
	case ErrInvalidOperation:
		return "invalid_operation"
	case ErrImageError:
		return "image_error"
	case ErrRuntimeFailed:
		return "runtime_failed"
	case ErrCommandFailed:
		return "command_failed"
	case ErrConfigInvalid:
		return "config_invalid"
	default:
		return "unknown"
	}
}

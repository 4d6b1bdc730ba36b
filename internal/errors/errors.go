package errors

import (
	"os"
	"sync"

	"cloudkit/internal/ui"
)

var (
	defaultHandler    *ErrorHandler
	defaultHandlerErr error
	once              sync.Once
)

func GetDefaultHandler() (*ErrorHandler, error) {
	once.Do(func() {
		defaultHandler, defaultHandlerErr = NewErrorHandler()
	})
	return defaultHandler, defaultHandlerErr
}

// HandleError logs and renders err with the process-wide handler. When no log
// file can be opened the error is still rendered, with logging sent to stderr.
func HandleError(err error) {
	handler, handlerErr := GetDefaultHandler()
	if handlerErr != nil {
		handler = newErrorHandler(os.Stderr, ui.NewConsole())
	}
	handler.Handle(err)
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	defaultHandlerErr = nil
	once = sync.Once{}
}

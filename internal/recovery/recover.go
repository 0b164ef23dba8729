package recovery

import (
	"log/slog"
	"runtime/debug"
)

// Recover logs a recovered panic (to both slog and the panic file) and
// swallows it. Call as `defer recovery.Recover("gc-background-worker")`.
func Recover(context string) {
	if r := recover(); r != nil {
		stack := string(debug.Stack())
		logPanic(context, r, stack)
		slog.Error("recovered panic", slog.String("context", context), slog.Any("error", r), slog.String("stack", stack))
	}
}

// Go runs fn on its own goroutine with Recover already wired in, so a
// panic inside fn cannot take the rest of the process down with it.
func Go(context string, fn func()) {
	go func() {
		defer Recover(context)
		fn()
	}()
}

// Package recovery logs panics recovered by Recover (directly, or in a
// goroutine started with Go) to a dedicated file, independent of
// whatever the host process's own logging is doing, so a crash in one
// does not blind the other. The gc package's background worker
// goroutine is started without it.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	panicLogFile = "gc-panic.log"
	maxFileSize  = 50 * 1024 * 1024
)

var (
	logFile  *os.File
	fileLock sync.Mutex
	logDir   string
	initOnce sync.Once
	initErr  error
)

// Init opens dir/gc-panic.log for append, creating dir if needed. Safe to
// call more than once; only the first call takes effect.
func Init(dir string) error {
	initOnce.Do(func() {
		logDir = dir
		if logDir == "" {
			logDir = "."
		}
		if err := os.MkdirAll(logDir, 0755); err != nil {
			initErr = fmt.Errorf("recovery: create log dir: %w", err)
			return
		}
		path := filepath.Join(logDir, panicLogFile)
		logFile, initErr = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if initErr != nil {
			initErr = fmt.Errorf("recovery: open panic log: %w", initErr)
		}
	})
	return initErr
}

// logPanic appends one panic record to the file, or to stderr if Init
// was never called or failed.
func logPanic(context string, panicValue any, stack string) {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile == nil {
		_, _ = fmt.Fprintf(os.Stderr, "[panic] %s: %v\n%s\n", context, panicValue, stack)
		return
	}

	if err := rotateIfNeeded(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "recovery: rotate panic log: %v\n", err)
	}

	entry := fmt.Sprintf(
		"---- panic %s ----\ncontext: %s\nerror: %v\n%s\n",
		time.Now().Format(time.RFC3339Nano), context, panicValue, stack,
	)
	if _, err := logFile.WriteString(entry); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "recovery: write panic log: %v\n", err)
	}
	_ = logFile.Sync()
}

func rotateIfNeeded() error {
	if logFile == nil {
		return nil
	}
	stat, err := logFile.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < maxFileSize {
		return nil
	}
	_ = logFile.Close()
	path := filepath.Join(logDir, panicLogFile)
	backup := path + ".old"
	_ = os.Remove(backup)
	if err := os.Rename(path, backup); err != nil {
		return err
	}
	logFile, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	return err
}

// Close closes the panic log file. Safe to call on an unopened logger.
func Close() error {
	fileLock.Lock()
	defer fileLock.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

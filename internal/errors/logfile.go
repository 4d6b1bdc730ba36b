package errors

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

const (
	logFileName    = "cloudkit.log"
	logDirEnv      = "CLOUDKIT_LOG_DIR"
	maxLogSize     = 10 * 1024 * 1024
	maxRotatedLogs = 5
)

// logDir returns the OS-standard log directory, honouring CLOUDKIT_LOG_DIR.
func logDir() (string, error) {
	if dir := os.Getenv(logDirEnv); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "CloudKit"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return filepath.Join(home, ".local", "share", "cloudkit", "logs"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "CloudKit", "logs"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "CloudKit", "logs"), nil
	default:
		return filepath.Join(home, ".cloudkit", "logs"), nil
	}
}

// writableLogDir creates the log directory, falling back to the working directory.
func writableLogDir() (string, bool, error) {
	dir, err := logDir()
	if err == nil {
		if err = os.MkdirAll(dir, 0750); err == nil {
			probe := filepath.Join(dir, ".write_probe")
			var f *os.File
			if f, err = os.Create(probe); err == nil {
				_ = f.Close()
				if rmErr := os.Remove(probe); rmErr != nil {
					slog.Warn("Failed to remove write probe", "path", probe, "error", rmErr)
				}
				return dir, false, nil
			}
		}
		fmt.Fprintf(os.Stderr, "Warning: Cannot access log directory %s: %v. Falling back to current directory for logging.\n", dir, err)
	} else {
		fmt.Fprintf(os.Stderr, "Warning: Cannot determine log directory: %v. Falling back to current directory for logging.\n", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", true, fmt.Errorf("cannot determine current directory for fallback logging: %w", err)
	}
	return cwd, true, nil
}

// rotateLogFile shifts cloudkit.log to .1, .1 to .2 and so on, dropping the oldest.
func rotateLogFile(logPath string) error {
	oldest := fmt.Sprintf("%s.%d", logPath, maxRotatedLogs)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			slog.Warn("Failed to remove old log file", "path", oldest, "error", err)
		}
	}

	for i := maxRotatedLogs - 1; i > 0; i-- {
		from := fmt.Sprintf("%s.%d", logPath, i)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		to := fmt.Sprintf("%s.%d", logPath, i+1)
		if err := os.Rename(from, to); err != nil {
			slog.Warn("Failed to rotate log file", "old", from, "new", to, "error", err)
		}
	}

	if _, err := os.Stat(logPath); err == nil {
		return os.Rename(logPath, logPath+".1")
	}
	return nil
}

func needsRotation(logPath string) bool {
	info, err := os.Stat(logPath)
	return err == nil && info.Size() >= maxLogSize
}

func openLogFile() (*os.File, error) {
	dir, _, err := writableLogDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(dir, logFileName)
	if needsRotation(logPath) {
		if err := rotateLogFile(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to rotate log file: %v\n", err)
		}
	}

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

package bank

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sm-moshi/membank/internal/metrics"
)

const (
	// DefaultMaxAttempts is the retry budget for transient failures.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the initial backoff between attempts.
	DefaultRetryDelay = 100 * time.Millisecond
	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 2 * time.Second
)

// FileOpsConfig holds configuration for FileOps
type FileOpsConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	MaxDelay    time.Duration
	DirMode     os.FileMode
	FileMode    os.FileMode
}

// FileOps performs read/write/mkdir/stat against validated absolute paths,
// retrying failures classified as transient with bounded exponential backoff.
type FileOps struct {
	cfg    FileOpsConfig
	logger zerolog.Logger
}

// NewFileOps creates a new retrying file operations layer.
func NewFileOps(cfg FileOpsConfig, logger zerolog.Logger) *FileOps {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxRetryDelay
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	metrics.EnsureRegistered()

	return &FileOps{
		cfg:    cfg,
		logger: logger.With().Str("component", "fileops").Logger(),
	}
}

// Read returns the full content of the file at path.
func (f *FileOps) Read(ctx context.Context, path string) (string, error) {
	var content string
	err := f.withRetry(ctx, "read", path, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Write replaces the file at path with content. The write is all-or-nothing:
// content lands in a temp file in the same directory and is renamed over the
// target, so a failure leaves the prior content untouched. The returned
// FileInfo is the written file's metadata, captured before the rename, so
// its mtime belongs to this write and no other.
func (f *FileOps) Write(ctx context.Context, path, content string) (os.FileInfo, error) {
	var info os.FileInfo
	err := f.withRetry(ctx, "write", path, func() error {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, f.cfg.DirMode); err != nil {
			return err
		}

		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, []byte(content), f.cfg.FileMode); err != nil {
			return err
		}

		// Rename preserves the temp file's mtime, so this stat observes
		// exactly the timestamp the target will carry.
		tmpInfo, err := os.Stat(tmp)
		if err != nil {
			os.Remove(tmp)
			return err
		}

		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return err
		}

		info = tmpInfo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Mkdir creates the directory at path, including parents. An already
// existing directory is success, not an error.
func (f *FileOps) Mkdir(ctx context.Context, path string) error {
	return f.withRetry(ctx, "mkdir", path, func() error {
		err := os.MkdirAll(path, f.cfg.DirMode)
		if err != nil && errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	})
}

// Stat returns file metadata for path.
func (f *FileOps) Stat(ctx context.Context, path string) (os.FileInfo, error) {
	var info os.FileInfo
	err := f.withRetry(ctx, "stat", path, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// withRetry runs fn up to MaxAttempts times, backing off between attempts.
// Permanent errors fail immediately with a classified code.
func (f *FileOps) withRetry(ctx context.Context, op, path string, fn func() error) error {
	start := time.Now()
	delay := f.cfg.RetryDelay

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			f.logger.Warn().
				Int("attempt", attempt).
				Int("maxAttempts", f.cfg.MaxAttempts).
				Str("op", op).
				Str("path", path).
				Err(lastErr).
				Msg("Retrying file operation")

			metrics.RecordFileOpRetry(op)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.RecordFileOp(op, time.Since(start), false)
				return opError(CodeTransientExhausted, op, path, ctx.Err())
			}

			delay *= 2
			if delay > f.cfg.MaxDelay {
				delay = f.cfg.MaxDelay
			}
		}

		err := fn()
		if err == nil {
			metrics.RecordFileOp(op, time.Since(start), true)
			return nil
		}

		if !isTransient(err) {
			metrics.RecordFileOp(op, time.Since(start), false)
			return classify(op, path, err)
		}

		lastErr = err
	}

	metrics.RecordFileOp(op, time.Since(start), false)
	return opError(CodeTransientExhausted, op, path, lastErr)
}

// isTransient reports whether err is worth retrying.
func isTransient(err error) bool {
	transient := []syscall.Errno{
		syscall.EAGAIN,
		syscall.EINTR,
		syscall.EBUSY,
		syscall.EMFILE,
		syscall.ENFILE,
	}
	for _, errno := range transient {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// classify maps a permanent filesystem error onto the engine taxonomy.
func classify(op, path string, err error) *Error {
	var code ErrorCode
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = CodeNotFound
	case errors.Is(err, fs.ErrPermission):
		code = CodePermissionDenied
	case errors.Is(err, fs.ErrExist):
		code = CodeAlreadyExists
	default:
		code = CodeIO
	}
	return opError(code, op, path, err)
}

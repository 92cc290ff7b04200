package internal

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// LogWrite describes the mutation made by one AppendIfAbsent call
type LogWrite struct {
	Name    string
	Written bool
	Created bool

	prevSize int64
}

// LogWriter maintains append-only, per-file commit logs in the target
// directory. The presence of a hash line in a log is the only record that a
// commit was mirrored into that file.
type LogWriter struct {
	fs billy.Filesystem
}

// NewLogWriter creates a LogWriter rooted at the given filesystem
func NewLogWriter(fs billy.Filesystem) *LogWriter {
	return &LogWriter{fs: fs}
}

// read returns the full content of a log, or nil if it does not exist
func (w *LogWriter) read(name string) ([]byte, bool, error) {
	f, err := w.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &LogWriteError{Name: name, Op: "read", Err: err}
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, true, &LogWriteError{Name: name, Op: "read", Err: err}
	}
	return data, true, nil
}

// containsHash reports whether content holds a block for hash. Only a hash
// line that opens a block counts: the first line of the file or the line
// right after a separator.
func containsHash(content []byte, hash string) bool {
	if hash == "" {
		return false
	}
	line := []byte(hashLine(hash))
	if bytes.HasPrefix(content, line) {
		return true
	}
	return bytes.Contains(content, append([]byte("\n"+blockSeparator), line...))
}

// Contains reports whether the named log already holds a block for hash
func (w *LogWriter) Contains(name, hash string) (bool, error) {
	data, exists, err := w.read(name)
	if err != nil || !exists {
		return false, err
	}
	return containsHash(data, hash), nil
}

// AppendIfAbsent appends the block for c to the named log unless a block with
// the same hash is already there. Missing logs are created.
func (w *LogWriter) AppendIfAbsent(name string, c *Commit) (*LogWrite, error) {
	result := &LogWrite{Name: name}

	data, exists, err := w.read(name)
	if err != nil {
		return nil, err
	}
	if exists && containsHash(data, c.Hash) {
		return result, nil
	}

	if dir := path.Dir(name); dir != "." {
		if err := w.fs.MkdirAll(dir, 0755); err != nil {
			return nil, &LogWriteError{Name: name, Op: "append", Err: err}
		}
	}

	f, err := w.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, &LogWriteError{Name: name, Op: "append", Err: err}
	}

	_, writeErr := f.Write([]byte(FormatBlock(c)))
	closeErr := f.Close()

	result.Created = !exists
	result.prevSize = int64(len(data))

	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		// Leave the file as it was before the failed write.
		_ = w.Rollback(&LogWrite{Name: name, Written: true, Created: result.Created, prevSize: result.prevSize})
		return nil, &LogWriteError{Name: name, Op: "append", Err: writeErr}
	}

	result.Written = true
	return result, nil
}

// Rollback undoes a write: created logs are removed, appended logs are
// truncated back to their previous size.
func (w *LogWriter) Rollback(lw *LogWrite) error {
	if lw == nil || !lw.Written {
		return nil
	}

	if lw.Created {
		if err := w.fs.Remove(lw.Name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &LogWriteError{Name: lw.Name, Op: "rollback", Err: err}
		}
		return nil
	}

	f, err := w.fs.OpenFile(lw.Name, os.O_WRONLY, 0644)
	if err != nil {
		return &LogWriteError{Name: lw.Name, Op: "rollback", Err: err}
	}
	truncErr := f.Truncate(lw.prevSize)
	closeErr := f.Close()
	if truncErr == nil {
		truncErr = closeErr
	}
	if truncErr != nil {
		return &LogWriteError{Name: lw.Name, Op: "rollback", Err: truncErr}
	}
	return nil
}

// Package archive walks the proprietary container format: a count-less
// stream of directory headers, each followed by a file count and that
// many page-aligned entries, ported from cvrdump.py's readbin loop.
package archive

import (
	"fmt"
	"io"

	"cvrextract/internal/breader"
)

const pageSize = 2048

// Entry is one decoded archive record.
type Entry struct {
	Directory string
	Name      string
	Payload   []byte
}

// DirHook is called once per directory header while walking, for optional
// progress reporting; it is never required for correctness.
type DirHook func(directory string, fileCount int)

// Walk reads every directory and file entry from data until EOF.
// Truncation in the middle of a directory header or a file record is a
// fatal parse error; EOF between directories is the normal terminator,
// since the format carries no top-level directory count.
func Walk(data []byte, onDir DirHook) ([]Entry, error) {
	r := breader.New(data)
	var entries []Entry

	for r.Off() < r.Len() {
		if !r.Remaining(8 + 32 + 4) {
			return nil, fmt.Errorf("archive: truncated directory header at offset %d", r.Off())
		}
		r.Skip(8) // two unknown u32 fields
		dirName := r.FixedASCII(32)
		fileCount := int(r.U32())
		if fileCount < 0 {
			return nil, fmt.Errorf("archive: negative file count in directory %q", dirName)
		}

		if onDir != nil {
			onDir(dirName, fileCount)
		}

		for i := 0; i < fileCount; i++ {
			if !r.Remaining(32 + 8) {
				return nil, fmt.Errorf("archive: truncated file header in directory %q, entry %d", dirName, i)
			}
			fileName := r.FixedASCII(32)
			size := int(r.U32())
			r.Skip(4) // unknown
			if size < 0 || !r.Remaining(size) {
				return nil, fmt.Errorf("archive: truncated payload for %q/%q (%d bytes)", dirName, fileName, size)
			}
			payload := r.Take(size)
			cp := make([]byte, len(payload))
			copy(cp, payload)

			entries = append(entries, Entry{Directory: dirName, Name: fileName, Payload: cp})

			next := (r.Off() + pageSize - 1) &^ (pageSize - 1)
			r.Seek(next)
		}

		// A directory with no files still ends on the next page boundary;
		// after file records the cursor is already aligned.
		r.Seek((r.Off() + pageSize - 1) &^ (pageSize - 1))
	}

	return entries, nil
}

// Sink is an abstract byte destination, the filesystem I/O boundary named
// in spec.md §6 (directory creation and general filesystem I/O are a
// non-goal of the core; this interface is the seam the driver fills in).
type Sink interface {
	// Write stores payload at the logical path "<directory>/<name>".
	Write(directory, name string, payload []byte) error
}

// WriteAll persists every entry's raw payload through sink, preserving
// directory and file names exactly as decoded.
func WriteAll(entries []Entry, sink Sink) error {
	for _, e := range entries {
		if err := sink.Write(e.Directory, e.Name, e.Payload); err != nil {
			return fmt.Errorf("archive: write %s/%s: %w", e.Directory, e.Name, err)
		}
	}
	return nil
}

// ReadAll is a convenience wrapper for callers holding an io.Reader of
// unknown-but-bounded size rather than an in-memory slice.
func ReadAll(r io.Reader, onDir DirHook) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read stream: %w", err)
	}
	return Walk(data, onDir)
}

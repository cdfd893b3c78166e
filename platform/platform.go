// Package platform is the thin file primitive the repository cache uses to
// hand open stream handles to the engine's load/save calls. It keeps a
// process-wide table mapping numeric handles to open files; engine
// implementations resolve a handle back to its file via File.
package platform

import (
	"os"
	"sync"

	"github.com/nwbridge/rfc-server-go/native"
)

// Mode selects the direction a stream is opened for.
type Mode int

const (
	// ModeRead opens an existing file for reading.
	ModeRead Mode = iota
	// ModeWrite creates or truncates a file for writing.
	ModeWrite
)

var (
	mu    sync.Mutex
	next  native.StreamHandle
	table = map[native.StreamHandle]*os.File{}
)

// Open opens path in the given mode and returns a stream handle for it. The
// zero handle means the open failed; the primitive reports no further detail,
// matching the engine's stream contract.
func Open(path string, mode Mode) native.StreamHandle {
	var (
		f   *os.File
		err error
	)
	switch mode {
	case ModeWrite:
		f, err = os.Create(path)
	default:
		f, err = os.Open(path)
	}
	if err != nil {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	next++
	table[next] = f
	return next
}

// Close closes the stream behind the handle and removes it from the table.
// It returns 0 on success and -1 when the handle is unknown or the close
// itself failed.
func Close(h native.StreamHandle) int {
	mu.Lock()
	f, ok := table[h]
	delete(table, h)
	mu.Unlock()
	if !ok {
		return -1
	}
	if err := f.Close(); err != nil {
		return -1
	}
	return 0
}

// File resolves a handle to its open file. Engine implementations use it to
// reach the underlying stream during LoadRepository/SaveRepository.
func File(h native.StreamHandle) (*os.File, bool) {
	mu.Lock()
	defer mu.Unlock()
	f, ok := table[h]
	return f, ok
}

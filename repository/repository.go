// Package repository manages the file-backed repository of serialized
// function descriptions. Loading and saving go through the engine against an
// open platform stream; the stream is closed exactly once on every path,
// which is this package's core resource contract.
package repository

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/nwbridge/rfc-server-go/native"
	"github.com/nwbridge/rfc-server-go/platform"
	"github.com/nwbridge/rfc-server-go/rfc"
)

// FileOpenError reports that the platform file primitive returned an invalid
// stream for the repository file. It is raised before any engine call is
// attempted.
type FileOpenError struct {
	Path string
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("repository: open %s: invalid stream", e.Path)
}

// Opener abstracts the platform file primitive so tests can count and fail
// stream operations. The zero handle is the invalid stream.
type Opener interface {
	Open(path string, mode platform.Mode) native.StreamHandle
	Close(h native.StreamHandle) int
}

type osOpener struct{}

func (osOpener) Open(path string, mode platform.Mode) native.StreamHandle {
	return platform.Open(path, mode)
}

func (osOpener) Close(h native.StreamHandle) int { return platform.Close(h) }

// Cache loads and saves repositories of function descriptions through the
// engine.
type Cache struct {
	engine native.Engine
	opener Opener
	log    *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithOpener replaces the platform file primitive.
func WithOpener(o Opener) CacheOption {
	return func(c *Cache) { c.opener = o }
}

// WithLogger sets the cache's logger. A nil logger discards output.
func WithLogger(log *slog.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCache builds a Cache over the given engine.
func NewCache(engine native.Engine, opts ...CacheOption) *Cache {
	c := &Cache{
		engine: engine,
		opener: osOpener{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the repository file at path into the repository named repoID.
// The stream is closed before Load returns, whether or not the engine call
// succeeded.
func (c *Cache) Load(path, repoID string) error {
	stream := c.opener.Open(path, platform.ModeRead)
	if stream == 0 {
		return &FileOpenError{Path: path}
	}
	info := c.engine.LoadRepository(repoID, stream)
	if rc := c.opener.Close(stream); rc != 0 {
		// The close failure never outranks the load outcome.
		c.log.Warn("repository stream close failed", "path", path, "rc", rc)
	}
	if err := rfc.CallErrorFrom("LoadRepository", info); err != nil {
		return err
	}
	c.log.Debug("repository loaded", "path", path, "repo", repoID)
	return nil
}

// Save writes the repository named repoID to the file at path, with the same
// unconditional-close discipline as Load.
func (c *Cache) Save(path, repoID string) error {
	stream := c.opener.Open(path, platform.ModeWrite)
	if stream == 0 {
		return &FileOpenError{Path: path}
	}
	info := c.engine.SaveRepository(repoID, stream)
	if rc := c.opener.Close(stream); rc != 0 {
		c.log.Warn("repository stream close failed", "path", path, "rc", rc)
	}
	if err := rfc.CallErrorFrom("SaveRepository", info); err != nil {
		return err
	}
	c.log.Debug("repository saved", "path", path, "repo", repoID)
	return nil
}

// FunctionDesc resolves a function description from a previously loaded
// repository.
func (c *Cache) FunctionDesc(repoID, name string) (native.FunctionDescHandle, error) {
	desc, info := c.engine.GetCachedFunctionDesc(repoID, name)
	if err := rfc.CallErrorFrom("GetCachedFunctionDesc", info); err != nil {
		return 0, err
	}
	return desc, nil
}

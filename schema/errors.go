package schema

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
)

// Sentinel error kinds. Transports map these to their surface: HTTP status,
// MCP error payload, CLI exit code.
var (
	// ErrNotFound marks a collection, framework or project that is not indexed.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a collection that exists with an incompatible mode.
	ErrConflict = errors.New("conflict")
	// ErrShutdown marks a resource accessed after registry teardown.
	ErrShutdown = errors.New("registry is closed")
)

// ConfigError reports missing or invalid settings. Fatal at startup.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// ReadError reports an unreachable or malformed document source.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// BackendError reports a vector store, embedder, LLM or cache failure.
// Retries records how many attempts were made before giving up.
type BackendError struct {
	Backend string
	Retries int
	Err     error
}

func (e *BackendError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("%s backend failed after %d retries: %v", e.Backend, e.Retries, e.Err)
	}
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NotIndexedMessage is the user-visible string returned when a search
// targets an absent collection. It is a result, not a transport error.
func NotIndexedMessage(project string) string {
	return fmt.Sprintf("Error: Project '%s' not indexed", project)
}

// MD5Hex returns the md5 hex digest of s. Used for cache fingerprints only.
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

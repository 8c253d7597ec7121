// Package mmfile supplies arenas: anonymous memory and memory-mapped files
// that can be resized, plus a read-only view of an existing file.
package mmfile

import "errors"

// ErrClosed is returned by operations on a closed Mapping.
var ErrClosed = errors.New("mmfile: mapping closed")

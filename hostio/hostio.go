// Package hostio models the conventions of an embedding host runtime
// that hands file-like objects to native code: duck-typed files whose
// methods return loosely typed values, error values that may carry a
// POSIX error number, and a global runtime lock that must be held
// around every call into a host object.
package hostio

import "sync"

// File is the method set required from a host file-like object.
// Implementations bridge to the actual host value; results are
// reported as their dynamic type because the host gives no static
// guarantee about what its methods return.
type File interface {
	// Read requests at most n bytes from the object. A well-behaved
	// object returns a []byte holding between 0 and n bytes, where an
	// empty slice signals end of stream.
	Read(n int) (any, error)
	// Seek repositions the object's cursor by offset relative to
	// whence (io.SeekStart, io.SeekCurrent or io.SeekEnd) and returns
	// the new absolute position. A well-behaved object returns an
	// integer; objects without random access return an error.
	Seek(offset int64, whence int) (any, error)
}

// OSError is implemented by host errors that carry a POSIX error
// number, such as the host's equivalent of a failed system call.
type OSError interface {
	error
	// Errno returns the POSIX error number, e.g. 2 for ENOENT.
	Errno() int
}

// Runtime represents the embedding host runtime. Host objects may not
// be entered concurrently, so every call into a File must happen
// between Lock and Unlock. The runtime also holds at most one pending
// host error: a raw error parked for the host-facing caller when it
// cannot be expressed as a native error. The zero value is ready to
// use.
type Runtime struct {
	mu sync.Mutex

	pendingMu sync.Mutex
	pending   error
}

// Lock acquires the runtime's global lock.
func (rt *Runtime) Lock() { rt.mu.Lock() }

// Unlock releases the runtime's global lock.
func (rt *Runtime) Unlock() { rt.mu.Unlock() }

// Restore parks err as the runtime's pending host error, replacing any
// error parked earlier. Restore may be called with or without the
// runtime lock held.
func (rt *Runtime) Restore(err error) {
	rt.pendingMu.Lock()
	rt.pending = err
	rt.pendingMu.Unlock()
}

// TakePending returns the pending host error and clears it, or nil if
// no error is pending.
func (rt *Runtime) TakePending() error {
	rt.pendingMu.Lock()
	err := rt.pending
	rt.pending = nil
	rt.pendingMu.Unlock()
	return err
}

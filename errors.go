package naf

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/nafformat/naf-go/hostio"
)

// TypeError reports a host object method returning a value of an
// unexpected type.
type TypeError struct {
	// Want is the name of the expected type.
	Want string
	// Got is the name of the type the host returned.
	Got string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, found %s", e.Want, e.Got)
}

// typeName names a host value the way error messages report it.
func typeName(v any) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%T", v)
}

// reinterpretHostError converts a failed host call into a native
// error. Host errors exposing a POSIX error number are rebuilt around
// the same code, so errno dispatch (os.IsNotExist and friends) works
// on the result. Any other host error cannot cross the boundary
// intact: it is parked on the runtime for the host-facing caller and
// replaced by a generic failure naming the method.
func reinterpretHostError(rt *hostio.Runtime, op string, err error) error {
	var osErr hostio.OSError
	if errors.As(err, &osErr) {
		return os.NewSyscallError(op, syscall.Errno(osErr.Errno()))
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return os.NewSyscallError(op, errno)
	}
	rt.Restore(err)
	return fmt.Errorf("host %s method failed", op)
}

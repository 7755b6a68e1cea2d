package server

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// wsaEADDRINUSE is the Winsock address-in-use code, which syscall.EADDRINUSE does not match on Windows.
const wsaEADDRINUSE = syscall.Errno(10048)

// PortInUseError indicates that the requested listen address is already occupied.
type PortInUseError struct {
	Address string
	Err     error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("port %s is already in use", e.Address)
}

func (e *PortInUseError) Unwrap() error {
	return e.Err
}

// isAddrInUseError determines whether an error represents an address-in-use condition.
func isAddrInUseError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EADDRINUSE || errno == wsaEADDRINUSE) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && isAddrInUseError(opErr.Err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "only one usage of each socket address")
}

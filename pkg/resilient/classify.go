package resilient

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrUnavailable is the sentinel for a backing store that cannot be reached.
// Storage layers that raise typed unavailability errors should wrap this (or
// provide their own kind through WithClassifier) so that classification does
// not depend on error text.
var ErrUnavailable = errors.New("backing store unavailable")

// Classifier reports whether an error indicates store unavailability.
type Classifier func(error) bool

// outageSignatures are known substrings of connectivity failures from
// drivers that expose only free-text errors. This is the last-resort
// fallback behind the typed checks; it yields false negatives if a driver's
// message format drifts.
var outageSignatures = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"server selection",
	"i/o timeout",
	"timed out",
	"dial tcp",
	"database is closed",
}

// IsUnavailable classifies an error as a transient store-unavailability
// failure. Typed checks run first; the textual signature match only covers
// errors that carry no classifiable type.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, signature := range outageSignatures {
		if strings.Contains(msg, signature) {
			return true
		}
	}
	return false
}

package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Error kinds. Every error returned by the adapter matches exactly one of
// these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrUnavailable     = errors.New("storage unavailable")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknown         = errors.New("unknown storage error")
)

// Logical operation names carried by OperationError.Op.
const (
	OpWrite           = "write"
	OpRead            = "read"
	OpDelete          = "delete"
	OpDeleteDirectory = "delete directory"
	OpCreateDirectory = "create directory"
	OpCopy            = "copy"
	OpMove            = "move"
	OpFileExists      = "file exists"
	OpDirectoryExists = "directory exists"
	OpVisibility      = "visibility"
	OpSetVisibility   = "set visibility"
	OpMetadata        = "metadata"
	OpList            = "list"
	OpSignURL         = "sign url"
	OpPublicURL       = "public url"
	OpChecksum        = "checksum"
	OpPostPolicy      = "post policy"
)

// OperationError is the single error type crossing the adapter boundary.
//
// Unwrap exposes only Kind; the backend cause is kept for diagnostics but is
// not reachable through errors.As.
type OperationError struct {
	Op    string
	Path  string
	Kind  error
	Cause error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Kind)
	if e.Cause != nil && e.Cause != e.Kind {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the error kind.
func (e *OperationError) Unwrap() error {
	return e.Kind
}

// Translate converts err into an *OperationError for op and path.
// A nil err stays nil.
func Translate(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var oe *OperationError
	if errors.As(err, &oe) {
		return oe
	}

	return &OperationError{Op: op, Path: path, Kind: classify(op, err), Cause: err}
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAccessDenied reports whether err is an AccessDenied error.
func IsAccessDenied(err error) bool { return errors.Is(err, ErrAccessDenied) }

// IsUnavailable reports whether err is an Unavailable error.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

func classify(op string, err error) error {
	for _, kind := range []error{ErrNotFound, ErrAccessDenied, ErrUnavailable, ErrInvalidArgument, ErrUnknown} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	switch {
	case provider.IsMissing(err):
		return ErrNotFound
	case provider.IsAccessDenied(err):
		return ErrAccessDenied
	case provider.IsUnavailable(err):
		return ErrUnavailable
	case provider.IsInvalidRequest(err):
		return ErrInvalidArgument
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrUnavailable
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket", "NoSuchVersion":
			return ErrNotFound
		case "AccessDenied", "Forbidden", "AllAccessDisabled", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return ErrAccessDenied
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return ErrUnavailable
		case "InvalidArgument", "InvalidRequest", "InvalidObjectName", "KeyTooLongError":
			return ErrInvalidArgument
		}
	}

	if isMutation(op) {
		return ErrUnavailable
	}
	return ErrUnknown
}

func isMutation(op string) bool {
	switch op {
	case OpWrite, OpDelete, OpDeleteDirectory, OpCreateDirectory, OpCopy, OpMove, OpSetVisibility:
		return true
	}
	return false
}

// invalidArgument builds an InvalidArgument error without a backend cause.
func invalidArgument(op, path, format string, args ...any) error {
	return &OperationError{Op: op, Path: path, Kind: ErrInvalidArgument, Cause: fmt.Errorf(format, args...)}
}

package errprocess

import (
	"errors"
	"net/http"

	"chat_platform/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classify an error for the caller
type Kind int

const (
	// Internal infrastructure or unexpected failure
	Internal Kind = iota
	// Unauthenticated no verified caller identity
	Unauthenticated
	// NotFound referenced user / conversation / message absent
	NotFound
	// Forbidden caller is not allowed to do this
	Forbidden
	// Validation field bounds or duplicate username
	Validation
	// Exhausted username suffix ceiling exceeded
	Exhausted
	// Integrity stored data references something that no longer resolves
	Integrity
)

var kindNames = map[Kind]string{
	Internal:        "internal",
	Unauthenticated: "unauthenticated",
	NotFound:        "not_found",
	Forbidden:       "forbidden",
	Validation:      "validation",
	Exhausted:       "exhausted",
	Integrity:       "integrity",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Error typed, user presentable error
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// New build a typed error and log it
func New(kind Kind, msg string) error {
	switch kind {
	case Internal, Integrity:
		logger.Log.Error(msg, zap.String("kind", kind.String()))
	default:
		logger.Log.Warn(msg, zap.String("kind", kind.String()))
	}
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of err, Internal when err is not typed
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is report whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus map err to a response status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Validation:
		return http.StatusBadRequest
	case Exhausted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user presentable text of err, internal details are hidden
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}

// GRPCCode map err to a grpc status code
func GRPCCode(err error) codes.Code {
	switch KindOf(err) {
	case Unauthenticated:
		return codes.Unauthenticated
	case NotFound:
		return codes.NotFound
	case Forbidden:
		return codes.PermissionDenied
	case Validation:
		return codes.InvalidArgument
	case Exhausted:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// GRPCStatus convert err into a status error carrying the presentable message
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(GRPCCode(err), Message(err))
}

// FromGRPC rebuild a typed error from a status error returned by a remote call
func FromGRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var kind Kind
	switch st.Code() {
	case codes.Unauthenticated:
		kind = Unauthenticated
	case codes.NotFound:
		kind = NotFound
	case codes.PermissionDenied:
		kind = Forbidden
	case codes.InvalidArgument:
		kind = Validation
	case codes.ResourceExhausted:
		kind = Exhausted
	default:
		return err
	}
	return &Error{Kind: kind, Msg: st.Message()}
}

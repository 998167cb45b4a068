package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// TopologyErrorType classifies a malformed topology.
type TopologyErrorType uint8

const (
	InvalidNesting TopologyErrorType = iota
	MissingAttribute
	InvalidAttribute
	InvalidState
)

// TopologyError reports a tree that violates the nesting or attribute rules,
// or a topology operation invoked in the wrong state.
type TopologyError struct {
	ErrorType     TopologyErrorType
	Message       string
	InternalError error
}

func (e *TopologyError) Error() string {
	return e.Message
}

func (e *TopologyError) Unwrap() error {
	return e.InternalError
}

// ResolutionError reports a class the DI scope could not construct.
type ResolutionError struct {
	Class         string
	Message       string
	InternalError error
}

func (e *ResolutionError) Error() string {
	if e.InternalError != nil {
		return fmt.Sprintf("cannot resolve '%v': %v: %v", e.Class, e.Message, e.InternalError)
	}
	return fmt.Sprintf("cannot resolve '%v': %v", e.Class, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.InternalError
}

// BindConflictError reports two endpoints claiming the same host and port.
type BindConflictError struct {
	Host    string
	Port    int
	Message string
}

func (e *BindConflictError) Error() string {
	return fmt.Sprintf("bind conflict on %v: %v", HostPort(e.Host, e.Port), e.Message)
}

// StartError reports an endpoint that could not be bound or a context that failed to initialize.
type StartError struct {
	Address       string
	Message       string
	InternalError error
}

func (e *StartError) Error() string {
	if e.InternalError != nil {
		return fmt.Sprintf("cannot start %v: %v: %v", e.Address, e.Message, e.InternalError)
	}
	return fmt.Sprintf("cannot start %v: %v", e.Address, e.Message)
}

func (e *StartError) Unwrap() error {
	return e.InternalError
}

// BuildError wraps the error that aborted a build together with the errors
// raised while rolling back the registrations already applied.
type BuildError struct {
	Node     string
	Cause    error
	Rollback error
}

func (e *BuildError) Error() string {
	msg := e.Cause.Error()
	if e.Node != "" {
		msg = e.Node + ": " + msg
	}
	if e.Rollback != nil {
		msg += " (rollback: " + e.Rollback.Error() + ")"
	}
	return msg
}

func (e *BuildError) Unwrap() []error {
	if e.Rollback == nil {
		return []error{e.Cause}
	}
	return []error{e.Cause, e.Rollback}
}

// IsWildcardHost indicates if host binds every interface.
func IsWildcardHost(host string) bool {
	return host == "" || host == "0.0.0.0" || host == "::"
}

// HostPort joins host and port into an address.
func HostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// IsStartError indicates if err was raised while binding or initializing.
func IsStartError(err error) bool {
	var startErr *StartError
	return errors.As(err, &startErr)
}

package core

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNotConnected is returned by commands that need an active connection.
	ErrNotConnected = errors.New("no active connection")

	// ErrInvalidRequest marks caller input that cannot produce a statement.
	ErrInvalidRequest = errors.New("invalid request")
)

// ConnectError reports an unreachable host, an auth failure, a malformed
// URL or a failure to obtain a pooled connection in time.
type ConnectError struct {
	Dialect Dialect
	Err     error
}

func (e *ConnectError) Error() string {
	if e.Dialect == "" {
		return fmt.Sprintf("couldn't connect to database: %v", e.Err)
	}
	return fmt.Sprintf("couldn't connect to %s database: %v", e.Dialect, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// UnsupportedDriverError is returned for an unrecognized URL scheme or
// dialect name.
type UnsupportedDriverError struct {
	Prefix string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("unsupported driver %q (supported: sqlite, postgresql, mysql)", e.Prefix)
}

// PingError means a connection was obtained but the server did not answer
// the liveness probe.
type PingError struct {
	Dialect Dialect
	Err     error
}

func (e *PingError) Error() string {
	return fmt.Sprintf("%s database not responding to pings: %v", e.Dialect, e.Err)
}

func (e *PingError) Unwrap() error { return e.Err }

// QueryError wraps a driver failure while running a statement.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CodecErrorKind distinguishes codec failures.
type CodecErrorKind string

// Codec failure kinds.
const (
	TypeMismatch        CodecErrorKind = "type_mismatch"
	UnsupportedDataType CodecErrorKind = "unsupported_data_type"
)

// CodecError reports a value that cannot be converted between the canonical
// model and a dialect's wire representation.
type CodecError struct {
	Kind       CodecErrorKind
	Column     string
	ColumnType ColumnType
	NativeType string
	Err        error
}

func (e *CodecError) Error() string {
	var where string
	if e.Column != "" {
		where = fmt.Sprintf(" in column %q", e.Column)
	}
	switch e.Kind {
	case UnsupportedDataType:
		return fmt.Sprintf("unsupported data type %q%s", e.NativeType, where)
	default:
		if e.Err != nil {
			return fmt.Sprintf("type mismatch for %s%s: %v", e.ColumnType, where, e.Err)
		}
		return fmt.Sprintf("type mismatch for %s%s", e.ColumnType, where)
	}
}

func (e *CodecError) Unwrap() error { return e.Err }

// SpawnError reports a failure to start the sidecar process.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start sidecar %q: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// KillError reports a failure to signal the sidecar process.
type KillError struct {
	PID int
	Err error
}

func (e *KillError) Error() string {
	return fmt.Sprintf("failed to stop sidecar (pid %d): %v", e.PID, e.Err)
}

func (e *KillError) Unwrap() error { return e.Err }

// SchemaDiscoveryError wraps a catalog query failure.
type SchemaDiscoveryError struct {
	Dialect Dialect
	Table   string
	Err     error
}

func (e *SchemaDiscoveryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("failed to discover %s schema for table %q: %v", e.Dialect, e.Table, e.Err)
	}
	return fmt.Sprintf("failed to discover %s schema: %v", e.Dialect, e.Err)
}

func (e *SchemaDiscoveryError) Unwrap() error { return e.Err }

// ErrorPayload is the serializable form of an error handed to callers.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Payload classifies err into its serializable form.
func Payload(err error) ErrorPayload {
	if err == nil {
		return ErrorPayload{}
	}
	p := ErrorPayload{Kind: "internal", Message: err.Error()}
	var (
		unsupported *UnsupportedDriverError
		connect     *ConnectError
		ping        *PingError
		codec       *CodecError
		discovery   *SchemaDiscoveryError
		query       *QueryError
		spawn       *SpawnError
		kill        *KillError
	)
	switch {
	case errors.As(err, &unsupported):
		p.Kind = "unsupported_driver"
	case errors.As(err, &ping):
		p.Kind = "ping"
	case errors.As(err, &connect):
		p.Kind = "connect"
	case errors.As(err, &codec):
		p.Kind = string(codec.Kind)
	case errors.As(err, &discovery):
		p.Kind = "schema_discovery"
	case errors.As(err, &query):
		p.Kind = "query"
	case errors.As(err, &spawn):
		p.Kind = "spawn"
	case errors.As(err, &kill):
		p.Kind = "kill"
	case errors.Is(err, ErrNotConnected):
		p.Kind = "not_connected"
	case errors.Is(err, ErrInvalidRequest):
		p.Kind = "invalid_request"
	}
	return p
}

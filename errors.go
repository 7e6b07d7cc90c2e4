package ldb

import (
	"errors"
	"fmt"
)

var (
	ErrClosed                   = errors.New("database closed")
	ErrUnsupportedOperation     = errors.New("unsupported operation")
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
	ErrForeignBatch             = errors.New("write batch belongs to another database")
)

// OpenError reports an engine that could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %v: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// EngineError wraps a failure the engine reported while serving Op.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%v: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func unsupported(op string) error {
	return fmt.Errorf("%w: %v", ErrUnsupportedOperation, op)
}

func engineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}

package localeprefs

import (
	"errors"
)

// unexpectedErrorMessage is reported when a recovered panic value is not an error.
const unexpectedErrorMessage = "unexpected error"

// Result is the envelope returned by every public orchestration method.
// Exactly one of Data and Error is set.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Error)
}

func ok[T any](v T) Result[T] {
	return Result[T]{Success: true, Data: &v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Error: err.Error()}
}

// fromErr turns an internal (value, error) pair into a Result.
func fromErr[T any](v T, err error) Result[T] {
	if err != nil {
		return fail[T](err)
	}
	return ok(v)
}

// panicMessage renders a recovered panic value.
func panicMessage(r any) string {
	if err, isErr := r.(error); isErr {
		return err.Error()
	}
	return unexpectedErrorMessage
}

// recoverResult converts a panic in op into a failure Result. It must be
// called directly by defer.
func (m *Manager) recoverResult(op string, res any) {
	r := recover()
	if r == nil {
		return
	}
	msg := panicMessage(r)
	m.config.logger.Error("Recovered from panic", "op", op, "client_id", m.config.clientID, "error", msg)
	if setter, isSetter := res.(interface{ setFailure(string) }); isSetter {
		setter.setFailure(msg)
	}
}

func (r *Result[T]) setFailure(msg string) {
	*r = Result[T]{Error: msg}
}

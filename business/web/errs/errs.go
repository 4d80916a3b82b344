// Package errs provides the error types returned by the node's http handlers.
package errs

import "errors"

// Response is the body written for a failed request.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to show to the caller, along
// with the status code to respond with.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted pairs an expected handler error with an http status code.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap gives errors.Is access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted reports whether a Trusted error exists in the chain.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns the Trusted error in the chain, or nil.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

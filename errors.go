package msghash

import (
	"errors"
)

// Errors
var (
	ErrInvalidTextEncoding = errors.New("invalid text encoding")
	ErrInvalidNumeral      = errors.New("invalid numeral syntax")
	ErrNumeralOutOfRange   = errors.New("numeral out of field range")
	ErrHashComputation     = errors.New("hash computation failed")

	ErrInvalidPrivateKey  = errors.New("private key out of range")
	ErrInvalidPublicKey   = errors.New("public key is not on the stark curve")
	ErrInvalidMessageHash = errors.New("message hash out of range")
	ErrInvalidSignature   = errors.New("signature component out of range")
)

// FieldError reports which message field failed to parse. It unwraps to
// one of the numeral sentinel errors.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// fieldErr wraps err with the field name, leaving nil untouched.
func fieldErr(field string, err error) error {
	if err == nil {
		return nil
	}
	return &FieldError{Field: field, Err: err}
}

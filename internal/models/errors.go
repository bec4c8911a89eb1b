package models

import "errors"

// Failure classes shared by the loader, the preprocessor and the chat flow.
// Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrConnection = errors.New("connection failed")
	ErrQuery      = errors.New("query failed")
	ErrSchema     = errors.New("schema mismatch")
	ErrCompletion = errors.New("completion failed")
)

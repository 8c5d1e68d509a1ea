package domain

import "errors"

// Error taxonomy shared by the core and the HTTP layer. Handlers map these to
// status codes; callers distinguish "buy it" (Forbidden) from "retry later"
// (NotReady) from "something broke" (Storage).
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotReady        = errors.New("artifact not ready")
	ErrCorruptSource   = errors.New("source document is not a valid PDF")
	ErrEncoding        = errors.New("watermark text cannot be encoded")
	ErrStorage         = errors.New("storage failure")
)

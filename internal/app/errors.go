package app

import "errors"

var (
	// ErrInvalidCredentials is shown to end users and must not enable
	// account enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")
	ErrInvalidRole              = errors.New("role must be author or reader")

	ErrTitleRequired   = errors.New("title required")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrFileTooLarge    = errors.New("file exceeds the configured size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotLoggedIn occurs when an operation needs an authenticated cashier.
	ErrNotLoggedIn = errors.New("no cashier logged in")
)

package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	// ErrLoginSuperseded is returned when a logout or newer login replaced a pending login
	ErrLoginSuperseded = errors.New("login superseded by a newer session change")
)

// InvalidCredentialsMessage is the user-facing text stored in AuthState.Error
const InvalidCredentialsMessage = "Invalid credentials"

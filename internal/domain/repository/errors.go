package repository

import "errors"

var (
	// ErrSourceNotFound: the configured store does not exist or is not shared.
	ErrSourceNotFound = errors.New("signal source not found")
	// ErrAuthentication: the store rejected the configured credential.
	ErrAuthentication = errors.New("signal source authentication failed")
	// ErrMalformedRecord: a row or header could not be interpreted.
	ErrMalformedRecord = errors.New("malformed signal record")
	// ErrNoView: no refresh cycle has completed yet.
	ErrNoView = errors.New("no dashboard view available")
)

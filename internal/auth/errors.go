package auth

import "errors"

// Failure sentinels for the authentication protocol. Callers and tests
// discriminate with errors.Is; the underlying directory error stays on
// the chain for logging and message translation.
var (
	// ErrNotFound means the identifier matched no directory entry.
	ErrNotFound = errors.New("user not found")

	// ErrAmbiguous means the identifier matched more than one entry.
	// The resolver never picks one arbitrarily.
	ErrAmbiguous = errors.New("user identifier is ambiguous")

	// ErrBadCredentials means the verification bind was rejected.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrUnavailable means the directory could not be reached or could
	// not serve the request. Never conflated with ErrNotFound or
	// ErrBadCredentials.
	ErrUnavailable = errors.New("directory unavailable")
)

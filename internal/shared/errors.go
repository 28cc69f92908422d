package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input rejected before touching a store.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness violation such as a duplicate email.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure. It never says which factor failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive indicates the account exists but login is blocked.
	ErrAccountInactive = errors.New("authentication blocked for this account")
	// ErrTokenInvalid indicates a token with a bad signature, shape or kind.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnauthenticated indicates a protected call without usable credentials.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates an authenticated principal lacking access.
	ErrForbidden = errors.New("forbidden")
	// ErrViewOnly indicates a mutating call from a read-only account.
	ErrViewOnly = &viewOnlyError{}
)

type viewOnlyError struct{}

func (*viewOnlyError) Error() string {
	return "view-only users cannot perform write operations"
}

// Is lets errors.Is(ErrViewOnly, ErrForbidden) hold.
func (*viewOnlyError) Is(target error) bool {
	return target == ErrForbidden
}

// IsAuthentication reports whether err should surface as 401 to callers.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountInactive)
}

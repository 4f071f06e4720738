package types

import "errors"

// Sentinel error kinds for the account domain. Services wrap these with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is while the
// message still names the rule or resource that failed.
var (
	// ErrInvalidParams covers blank, malformed, too-short/too-long or
	// otherwise rejected input. The wrapping message states which rule failed.
	ErrInvalidParams = errors.New("invalid request parameters")

	// ErrConflict reports a duplicate handle or account code among live rows.
	ErrConflict = errors.New("item already exists or conflict")

	// ErrNotAuthenticated means no valid login state exists for the session.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrNoPermission means the session's login state lacks the required
	// role. A missing session fails the same way so the failure shape never
	// reveals whether a session existed.
	ErrNoPermission = errors.New("no permission")

	// ErrNotFound means a referenced identifier does not resolve to a live row.
	ErrNotFound = errors.New("requested item not found")

	// ErrOperationFailed means a store write reported zero effect.
	ErrOperationFailed = errors.New("operation failed")

	// ErrInvalidCredential is returned for any authentication or
	// password-change credential mismatch. It deliberately has the same
	// shape whether the handle is unknown or the password is wrong.
	ErrInvalidCredential = errors.New("incorrect handle or password")
)

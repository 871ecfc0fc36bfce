package common

import "golang.org/x/xerrors"

// Error kinds shared by all packages. Construction and resolver failures are returned
// as Go errors wrapping one of these; verification mismatches and seal conflicts are
// reported as verdicts carrying them as a reason.
var (
	ErrNotAllBytesConsumed  = xerrors.New("serialization error: not all bytes were consumed")
	ErrMalformedInput       = xerrors.New("malformed input")
	ErrCollisionExhausted   = xerrors.New("commitment tree placement exhausted its cofactor bound")
	ErrVerificationMismatch = xerrors.New("verification mismatch")
	ErrResolverFailure      = xerrors.New("chain data resolver failure")
	ErrSealConflict         = xerrors.New("seal outpoint spent by conflicting transactions")
)

package matchmaking

import "errors"

var (
	// ErrUnknownMatch covers a match id that is absent, already
	// finalized, or never existed. The caller cannot tell which.
	ErrUnknownMatch = errors.New("unknown match")

	// ErrParticipantMismatch — winner/loser are not both members of the
	// match, or winner equals loser.
	ErrParticipantMismatch = errors.New("winner/loser are not the match participants")
)

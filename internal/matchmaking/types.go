package matchmaking

import "time"

// Match is a live pairing of exactly two players. Once an outcome is
// recorded the match leaves the registry and only the persisted outcome
// keeps its id alive.
type Match struct {
	ID        string
	Players   [2]string
	CreatedAt time.Time
}

// HasPlayer reports whether userID is one of the two participants.
func (m Match) HasPlayer(userID string) bool {
	return m.Players[0] == userID || m.Players[1] == userID
}

// Outcome is the finalized winner/loser record of a completed match.
type Outcome struct {
	MatchID    string
	Winner     string
	Loser      string
	RecordedAt time.Time
}

type JoinStatus string

const (
	// StatusWaiting — the queue held no opponent, the user is now waiting.
	StatusWaiting JoinStatus = "waiting"
	// StatusAlreadyWaiting — idempotent re-join, nothing changed.
	StatusAlreadyWaiting JoinStatus = "already_waiting"
	// StatusMatched — paired with the queue head into a fresh match.
	StatusMatched JoinStatus = "matched"
)

// JoinResult is what Join hands back to the caller. MatchID and Opponent
// are set only for StatusMatched.
type JoinResult struct {
	Status   JoinStatus
	MatchID  string
	Opponent string
}

package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// matchRegistry owns all live matches, keyed by match id. Like the
// queue it carries no lock of its own; the Service serializes access.
type matchRegistry struct {
	matches map[string]Match
}

func newMatchRegistry() *matchRegistry {
	return &matchRegistry{
		matches: make(map[string]Match),
	}
}

// create stores a fresh match for the given pair. Ids are random UUIDs:
// status and record trust the token as sole authorization, so it must
// not be guessable or enumerable.
func (r *matchRegistry) create(players [2]string) Match {
	m := Match{
		ID:        uuid.NewString(),
		Players:   players,
		CreatedAt: time.Now().UTC(),
	}
	r.matches[m.ID] = m
	return m
}

func (r *matchRegistry) get(matchID string) (Match, bool) {
	m, ok := r.matches[matchID]
	return m, ok
}

// remove deletes and returns the match, reporting whether it was live.
// A second remove for the same id fails, which is what prevents double
// finalization.
func (r *matchRegistry) remove(matchID string) (Match, bool) {
	m, ok := r.matches[matchID]
	if !ok {
		return Match{}, false
	}
	delete(r.matches, matchID)
	return m, true
}

func (r *matchRegistry) len() int {
	return len(r.matches)
}

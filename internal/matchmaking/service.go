package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ScoreStore persists a finalized outcome. It is called strictly after
// the registry has dropped the match, never inside the critical section.
type ScoreStore interface {
	Persist(ctx context.Context, o Outcome) (int64, error)
}

// Service coordinates the waiting queue and the match registry. The two
// form one consistency domain: a single mutex covers every operation
// that touches either, so a join observes queue and registry together
// and no intermediate state is visible.
type Service struct {
	mu      sync.Mutex
	queue   *waitingQueue
	matches *matchRegistry

	scores ScoreStore
	log    *slog.Logger

	// onMatched, when set, is invoked after a successful pairing with
	// the id of the player who was waiting. Fired outside the lock.
	onMatched func(waitingUser string, m Match)
}

func NewService(scores ScoreStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queue:   newWaitingQueue(),
		matches: newMatchRegistry(),
		scores:  scores,
		log:     log,
	}
}

// SetOnMatched installs the pairing notification hook (e.g. a websocket
// hub). Must be called during wiring, before Join is used.
func (s *Service) SetOnMatched(fn func(waitingUser string, m Match)) {
	s.onMatched = fn
}

// Join enters userID into matchmaking.
//
// Membership check, enqueue-or-dequeue and match creation are one
// critical section; interleaving them would let two concurrent joins
// both see an empty queue or both pop the same head.
//
// A user who is already inside a live match is not detected here: there
// is no reverse index from user to match, so such a user can re-enter
// the queue. Callers are expected not to re-submit a join after being
// matched.
func (s *Service) Join(userID string) JoinResult {
	s.mu.Lock()

	if s.queue.contains(userID) {
		s.mu.Unlock()
		return JoinResult{Status: StatusAlreadyWaiting}
	}

	if s.queue.len() == 0 {
		s.queue.enqueue(userID)
		waiting := s.queue.len()
		s.mu.Unlock()

		s.log.Info("user waiting for opponent", "user_id", userID, "queue_len", waiting)
		return JoinResult{Status: StatusWaiting}
	}

	opponent, _ := s.queue.dequeueHead()
	m := s.matches.create([2]string{opponent, userID})
	s.mu.Unlock()

	s.log.Info("match created",
		"match_id", m.ID,
		"player1", opponent,
		"player2", userID,
	)

	// The waiting opponent learns about the pairing out of band; the
	// joining caller gets it synchronously in the result.
	if s.onMatched != nil {
		s.onMatched(opponent, m)
	}

	return JoinResult{
		Status:   StatusMatched,
		MatchID:  m.ID,
		Opponent: opponent,
	}
}

// Status looks up a live match. Finalized matches are gone from the
// registry, so they report not found just like ids that never existed.
func (s *Service) Status(matchID string) (Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches.get(matchID)
}

// QueueSnapshot returns the waiting users in arrival order. Diagnostic
// only; never mutates.
func (s *Service) QueueSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.snapshot()
}

// Record finalizes a match: validates the participants, removes the
// match from the registry and hands the outcome to the score store.
//
// Validation failures leave the match live so a corrected retry can
// still succeed. Removal and outcome construction happen atomically;
// only one of two racing Record calls for the same id can win, the
// other gets ErrUnknownMatch. Persistence runs after the lock is
// released and its failure does not resurrect the match: the result is
// handed over at most once, with no rollback.
func (s *Service) Record(ctx context.Context, matchID, winner, loser string) (Outcome, error) {
	s.mu.Lock()

	m, ok := s.matches.get(matchID)
	if !ok {
		s.mu.Unlock()
		return Outcome{}, ErrUnknownMatch
	}
	if winner == loser || !m.HasPlayer(winner) || !m.HasPlayer(loser) {
		s.mu.Unlock()
		return Outcome{}, ErrParticipantMismatch
	}

	s.matches.remove(matchID)
	o := Outcome{
		MatchID:    matchID,
		Winner:     winner,
		Loser:      loser,
		RecordedAt: time.Now().UTC(),
	}
	s.mu.Unlock()

	if s.scores != nil {
		// The match is already gone from the registry, so the write must
		// not die with the caller. Detach from cancellation but keep the
		// context values for tracing.
		persistCtx := context.WithoutCancel(ctx)
		if _, err := s.scores.Persist(persistCtx, o); err != nil {
			s.log.Warn("failed to persist match outcome",
				"match_id", matchID,
				"error", err,
			)
		}
	}

	s.log.Info("match finalized", "match_id", matchID, "winner", winner, "loser", loser)
	return o, nil
}

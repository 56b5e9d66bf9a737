package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScoreStore records persisted outcomes in memory.
type fakeScoreStore struct {
	mu       sync.Mutex
	outcomes []Outcome
	fail     error
}

func (f *fakeScoreStore) Persist(ctx context.Context, o Outcome) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	f.outcomes = append(f.outcomes, o)
	return int64(len(f.outcomes)), nil
}

func (f *fakeScoreStore) persisted() []Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Outcome(nil), f.outcomes...)
}

func newTestService() (*Service, *fakeScoreStore) {
	store := &fakeScoreStore{}
	return NewService(store, nil), store
}

func TestService_Join_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "first join waits, second join matches",
			run: func(t *testing.T) {
				s, _ := newTestService()

				res := s.Join("alice")
				assert.Equal(t, StatusWaiting, res.Status)
				assert.Empty(t, res.MatchID)

				res = s.Join("bob")
				require.Equal(t, StatusMatched, res.Status)
				assert.Equal(t, "alice", res.Opponent)
				assert.NotEmpty(t, res.MatchID)

				m, ok := s.Status(res.MatchID)
				require.True(t, ok)
				assert.Equal(t, [2]string{"alice", "bob"}, m.Players)
				assert.Empty(t, s.QueueSnapshot())
			},
		},
		{
			name: "re-join while waiting is idempotent",
			run: func(t *testing.T) {
				s, _ := newTestService()

				assert.Equal(t, StatusWaiting, s.Join("alice").Status)
				assert.Equal(t, StatusAlreadyWaiting, s.Join("alice").Status)
				assert.Equal(t, []string{"alice"}, s.QueueSnapshot())
			},
		},
		{
			name: "N distinct joins produce floor(N/2) matches and at most one residual",
			run: func(t *testing.T) {
				for _, n := range []int{4, 7} {
					s, _ := newTestService()
					matched := 0
					for i := 0; i < n; i++ {
						if s.Join(fmt.Sprintf("user-%d", i)).Status == StatusMatched {
							matched++
						}
					}
					assert.Equal(t, n/2, matched, "n=%d", n)
					assert.LessOrEqual(t, len(s.QueueSnapshot()), 1, "n=%d", n)
				}
			},
		},
		{
			name: "matched users get fresh unguessable ids per match",
			run: func(t *testing.T) {
				s, _ := newTestService()

				s.Join("a")
				first := s.Join("b")
				s.Join("c")
				second := s.Join("d")

				require.Equal(t, StatusMatched, first.Status)
				require.Equal(t, StatusMatched, second.Status)
				assert.NotEqual(t, first.MatchID, second.MatchID)
			},
		},
		{
			name: "onMatched hook fires for the waiting opponent",
			run: func(t *testing.T) {
				s, _ := newTestService()

				var gotUser string
				var gotMatch Match
				s.SetOnMatched(func(waitingUser string, m Match) {
					gotUser = waitingUser
					gotMatch = m
				})

				s.Join("alice")
				res := s.Join("bob")

				require.Equal(t, StatusMatched, res.Status)
				assert.Equal(t, "alice", gotUser)
				assert.Equal(t, res.MatchID, gotMatch.ID)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestService_Join_ConcurrentPairIsExact(t *testing.T) {
	// Two concurrent joins into an empty queue must produce exactly one
	// match containing both users, never two matches or a self-match.
	for i := 0; i < 50; i++ {
		s, _ := newTestService()

		var wg sync.WaitGroup
		results := make([]JoinResult, 2)
		for j, user := range []string{"a", "b"} {
			wg.Add(1)
			go func(idx int, u string) {
				defer wg.Done()
				results[idx] = s.Join(u)
			}(j, user)
		}
		wg.Wait()

		var matched []JoinResult
		for _, r := range results {
			if r.Status == StatusMatched {
				matched = append(matched, r)
			}
		}
		require.Len(t, matched, 1, "exactly one caller must see the pairing")

		m, ok := s.Status(matched[0].MatchID)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"a", "b"}, m.Players[:])
		assert.NotEqual(t, m.Players[0], m.Players[1])
		assert.Empty(t, s.QueueSnapshot())
	}
}

func TestService_Join_ManyConcurrent(t *testing.T) {
	s, _ := newTestService()

	const n = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	matched := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.Join(fmt.Sprintf("user-%d", i)).Status == StatusMatched {
				mu.Lock()
				matched++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, matched)
	assert.Equal(t, n/2, s.matches.len())
	assert.Empty(t, s.QueueSnapshot())
}

func TestService_Record_Scenarios(t *testing.T) {
	pair := func(s *Service) string {
		s.Join("alice")
		res := s.Join("bob")
		return res.MatchID
	}

	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "valid record persists outcome and removes the match",
			run: func(t *testing.T) {
				s, store := newTestService()
				matchID := pair(s)

				o, err := s.Record(context.Background(), matchID, "alice", "bob")
				require.NoError(t, err)
				assert.Equal(t, matchID, o.MatchID)
				assert.Equal(t, "alice", o.Winner)
				assert.Equal(t, "bob", o.Loser)
				assert.False(t, o.RecordedAt.IsZero())

				require.Len(t, store.persisted(), 1)
				assert.Equal(t, o, store.persisted()[0])

				_, ok := s.Status(matchID)
				assert.False(t, ok)
			},
		},
		{
			name: "second record for the same match id fails with ErrUnknownMatch",
			run: func(t *testing.T) {
				s, _ := newTestService()
				matchID := pair(s)

				_, err := s.Record(context.Background(), matchID, "alice", "bob")
				require.NoError(t, err)

				_, err = s.Record(context.Background(), matchID, "bob", "alice")
				assert.ErrorIs(t, err, ErrUnknownMatch)
			},
		},
		{
			name: "unknown match id",
			run: func(t *testing.T) {
				s, _ := newTestService()
				_, err := s.Record(context.Background(), "no-such-match", "alice", "bob")
				assert.ErrorIs(t, err, ErrUnknownMatch)
			},
		},
		{
			name: "non-participant winner leaves the match live",
			run: func(t *testing.T) {
				s, store := newTestService()
				matchID := pair(s)

				_, err := s.Record(context.Background(), matchID, "mallory", "bob")
				assert.ErrorIs(t, err, ErrParticipantMismatch)

				_, ok := s.Status(matchID)
				assert.True(t, ok, "failed record must not consume the match")
				assert.Empty(t, store.persisted())

				// corrected retry succeeds
				_, err = s.Record(context.Background(), matchID, "alice", "bob")
				assert.NoError(t, err)
			},
		},
		{
			name: "winner equal to loser is a participant mismatch",
			run: func(t *testing.T) {
				s, _ := newTestService()
				matchID := pair(s)

				_, err := s.Record(context.Background(), matchID, "alice", "alice")
				assert.ErrorIs(t, err, ErrParticipantMismatch)

				_, ok := s.Status(matchID)
				assert.True(t, ok)
			},
		},
		{
			name: "persist failure does not resurrect the match",
			run: func(t *testing.T) {
				s, store := newTestService()
				matchID := pair(s)
				store.fail = errors.New("storage down")

				o, err := s.Record(context.Background(), matchID, "bob", "alice")
				require.NoError(t, err, "record is at-most-once, persistence is best effort")
				assert.Equal(t, "bob", o.Winner)

				_, ok := s.Status(matchID)
				assert.False(t, ok)

				_, err = s.Record(context.Background(), matchID, "bob", "alice")
				assert.ErrorIs(t, err, ErrUnknownMatch)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestService_Record_ConcurrentOnlyOneWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, store := newTestService()
		s.Join("alice")
		matchID := s.Join("bob").MatchID

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, errs[idx] = s.Record(context.Background(), matchID, "alice", "bob")
			}(j)
		}
		wg.Wait()

		var okCount int
		for _, err := range errs {
			if err == nil {
				okCount++
			} else {
				assert.ErrorIs(t, err, ErrUnknownMatch)
			}
		}
		assert.Equal(t, 1, okCount, "exactly one racing record may win")
		assert.Len(t, store.persisted(), 1)
	}
}

func TestService_Record_SurvivesCanceledCaller(t *testing.T) {
	s, store := newTestService()
	s.Join("alice")
	matchID := s.Join("bob").MatchID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the caller is gone, the handed-over result must still land
	o, err := s.Record(ctx, matchID, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, matchID, o.MatchID)

	outcomes := store.persisted()
	require.Len(t, outcomes, 1)
	assert.Equal(t, "alice", outcomes[0].Winner)
}

func TestService_FullLifecycle(t *testing.T) {
	s, store := newTestService()

	require.Equal(t, StatusWaiting, s.Join("alice").Status)
	assert.Equal(t, 0, s.matches.len())

	res := s.Join("bob")
	require.Equal(t, StatusMatched, res.Status)
	require.Equal(t, "alice", res.Opponent)
	assert.Equal(t, 1, s.matches.len())

	m, ok := s.Status(res.MatchID)
	require.True(t, ok)
	assert.Equal(t, [2]string{"alice", "bob"}, m.Players)

	o, err := s.Record(context.Background(), res.MatchID, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, res.MatchID, o.MatchID)
	assert.Equal(t, "alice", o.Winner)
	assert.Equal(t, "bob", o.Loser)

	_, ok = s.Status(res.MatchID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.matches.len())
	require.Len(t, store.persisted(), 1)
}

// Package memory implements repository.Store in process memory. It backs the
// "memory" storage driver and the service tests, and supports injecting
// failures into individual operations.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
)

// Operation names accepted by FailOn.
const (
	OpGameCreate           = "games.create"
	OpGameUpdateAggregates = "games.update_aggregates"
	OpReviewCreate         = "reviews.create"
	OpReviewUpdate         = "reviews.update"
	OpReviewDelete         = "reviews.delete"
	OpReactionCreate       = "reactions.create"
	OpReactionLink         = "reactions.link"
	OpReactionUpdateTally  = "reactions.update_tally"
	OpReactionPutUser      = "reactions.put_user"
	OpReactionDelete       = "reactions.delete"
	OpDiscussionCreate     = "discussions.create"
	OpDiscussionLink       = "discussions.link"
	OpDiscussionDelete     = "discussions.delete"
	OpCommentAdd           = "comments.add"
	OpUserStatsSave        = "user_stats.save"
	OpDraftDelete          = "drafts.delete"
	OpCommit               = "tx.commit"
)

type state struct {
	games         map[string]domain.Game
	reviews       map[string]domain.Review
	reactions     map[string]domain.Reaction
	userReactions map[string]map[string]domain.UserReaction
	discussions   map[string]domain.Discussion
	comments      map[string]domain.Comment
	// commentSeq records insertion order; comments list in this order.
	commentSeq map[string]int64
	nextSeq    int64
	users      map[string]domain.UserStats
	drafts     map[string]domain.Draft
}

func newState() *state {
	return &state{
		games:         make(map[string]domain.Game),
		reviews:       make(map[string]domain.Review),
		reactions:     make(map[string]domain.Reaction),
		userReactions: make(map[string]map[string]domain.UserReaction),
		discussions:   make(map[string]domain.Discussion),
		comments:      make(map[string]domain.Comment),
		commentSeq:    make(map[string]int64),
		users:         make(map[string]domain.UserStats),
		drafts:        make(map[string]domain.Draft),
	}
}

func (s *state) clone() *state {
	c := &state{
		games:         maps.Clone(s.games),
		reviews:       maps.Clone(s.reviews),
		reactions:     maps.Clone(s.reactions),
		userReactions: make(map[string]map[string]domain.UserReaction, len(s.userReactions)),
		discussions:   maps.Clone(s.discussions),
		comments:      maps.Clone(s.comments),
		commentSeq:    maps.Clone(s.commentSeq),
		nextSeq:       s.nextSeq,
		users:         maps.Clone(s.users),
		drafts:        maps.Clone(s.drafts),
	}
	for id, users := range s.userReactions {
		c.userReactions[id] = maps.Clone(users)
	}
	return c
}

type fault struct {
	err       error
	remaining int
}

type backend struct {
	mu    sync.RWMutex
	state *state

	faultsMu sync.Mutex
	faults   map[string]*fault
}

func (b *backend) fault(op string) error {
	b.faultsMu.Lock()
	defer b.faultsMu.Unlock()

	f, ok := b.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(b.faults, op)
		}
	}
	return fmt.Errorf("%s: %w", op, f.err)
}

// mutation validates and applies one write. It must leave s untouched when it
// returns an error.
type mutation func(s *state) error

type txn struct {
	state *state
	log   []mutation
}

// Store is an in-memory repository.Store. Transactions work on a private
// snapshot and replay their writes onto the shared state at commit.
type Store struct {
	b  *backend
	tx *txn
}

var _ repository.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{b: &backend{state: newState(), faults: make(map[string]*fault)}}
}

// FailOn makes the next times calls of op fail with err. times <= 0 fails
// every call until ClearFaults.
func (s *Store) FailOn(op string, err error, times int) {
	s.b.faultsMu.Lock()
	defer s.b.faultsMu.Unlock()
	s.b.faults[op] = &fault{err: err, remaining: max(times, 0)}
}

// ClearFaults removes every injected failure.
func (s *Store) ClearFaults() {
	s.b.faultsMu.Lock()
	defer s.b.faultsMu.Unlock()
	s.b.faults = make(map[string]*fault)
}

func (s *Store) Games() repository.GameRepository             { return &gameRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository         { return &reviewRepo{s} }
func (s *Store) Reactions() repository.ReactionRepository     { return &reactionRepo{s} }
func (s *Store) Discussions() repository.DiscussionRepository { return &discussionRepo{s} }
func (s *Store) UserStats() repository.UserStatsRepository    { return &userStatsRepo{s} }
func (s *Store) Drafts() repository.DraftRepository           { return &draftRepo{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// WithTx runs fn against a snapshot and applies its writes atomically.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.b.mu.RLock()
	snapshot := s.b.state.clone()
	s.b.mu.RUnlock()

	t := &txn{state: snapshot}
	if err := fn(&Store{b: s.b, tx: t}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.b.fault(OpCommit); err != nil {
		return err
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	next := s.b.state.clone()
	for _, m := range t.log {
		if err := m(next); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	s.b.state = next
	return nil
}

func (s *Store) view(op string, fn func(st *state) error) error {
	if err := s.b.fault(op); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx.state)
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	return fn(s.b.state)
}

func (s *Store) update(op string, m mutation) error {
	if err := s.b.fault(op); err != nil {
		return err
	}
	if s.tx != nil {
		if err := m(s.tx.state); err != nil {
			return err
		}
		s.tx.log = append(s.tx.log, m)
		return nil
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return m(s.b.state)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// Counts reports how many records of each kind are stored.
type Counts struct {
	Games       int
	Reviews     int
	Reactions   int
	Discussions int
	Comments    int
	Drafts      int
}

// Counts returns the number of committed records of each kind.
func (s *Store) Counts() Counts {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	st := s.b.state
	return Counts{
		Games:       len(st.games),
		Reviews:     len(st.reviews),
		Reactions:   len(st.reactions),
		Discussions: len(st.discussions),
		Comments:    len(st.comments),
		Drafts:      len(st.drafts),
	}
}

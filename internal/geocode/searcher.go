package geocode

import (
	"context"
	"sync"
	"time"
)

// defaultCoalesceWindow is how long a search waits for a newer keystroke
// from the same session before hitting the geocoder.
const defaultCoalesceWindow = 300 * time.Millisecond

// staleAfter is how long a session's sequence record is kept after its last
// search before being pruned.
const staleAfter = 10 * time.Minute

// searchClient is the slice of Client the Searcher needs.
type searchClient interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Searcher serializes autocomplete traffic per session key. Each request
// carries a monotonically increasing sequence number issued by the client;
// only the response for the latest sequence is applied. Stale requests are
// dropped silently: superseded input is normal typing, not an error.
//
// Bursts are also coalesced: a request waits one short window before calling
// the geocoder, so a newer keystroke arriving inside the window cancels it
// without spending an upstream call.
type Searcher struct {
	client searchClient
	window time.Duration

	mu        sync.Mutex
	latest    map[string]*seqRecord
	lastPrune time.Time

	// sleep is replaced in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

type seqRecord struct {
	seq  uint64
	seen time.Time
}

// NewSearcher creates a Searcher over the given client. A non-positive
// window disables coalescing.
func NewSearcher(client searchClient, window time.Duration) *Searcher {
	if window < 0 {
		window = 0
	}
	return &Searcher{
		client: client,
		window: window,
		latest: make(map[string]*seqRecord),
		sleep:  sleepCtx,
	}
}

// Search runs one autocomplete request for the session identified by key.
// The returned applied flag is false when the request was superseded by a
// newer sequence; candidates are only meaningful when applied is true.
func (s *Searcher) Search(ctx context.Context, key, query string, seq uint64) (candidates []Candidate, applied bool, err error) {
	if !s.claim(key, seq) {
		return nil, false, nil
	}

	if s.window > 0 {
		if err := s.sleep(ctx, s.window); err != nil {
			return nil, false, err
		}
		if !s.isLatest(key, seq) {
			return nil, false, nil
		}
	}

	candidates, err = s.client.Search(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if !s.isLatest(key, seq) {
		return nil, false, nil
	}
	return candidates, true, nil
}

// claim records seq as the newest for key if it is, and reports whether this
// request is (still) the latest. Pruning of idle keys piggybacks here.
func (s *Searcher) claim(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneLocked(now)

	rec, ok := s.latest[key]
	if !ok {
		s.latest[key] = &seqRecord{seq: seq, seen: now}
		return true
	}
	rec.seen = now
	if seq < rec.seq {
		return false
	}
	rec.seq = seq
	return true
}

func (s *Searcher) isLatest(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.latest[key]
	return ok && rec.seq == seq
}

func (s *Searcher) pruneLocked(now time.Time) {
	if now.Sub(s.lastPrune) < staleAfter {
		return
	}
	s.lastPrune = now
	for key, rec := range s.latest {
		if now.Sub(rec.seen) > staleAfter {
			delete(s.latest, key)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

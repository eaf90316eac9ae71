package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/geocode"
	"github.com/SIACAML/cooqu-order/internal/session"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
)

// resolver is the slice of the geocode client PlacesService uses directly.
type resolver interface {
	Ready(ctx context.Context) error
	Resolve(ctx context.Context, placeID string) (*geocode.Resolved, error)
	ReverseResolve(ctx context.Context, lat, lng float64) (*geocode.Resolved, error)
}

// SearchResult is one autocomplete response. Stale is set when the request
// was superseded by a newer keystroke; the client discards such responses.
type SearchResult struct {
	Candidates []geocode.Candidate `json:"candidates"`
	Seq        uint64              `json:"seq"`
	Stale      bool                `json:"stale,omitempty"`
}

// PlacesService fronts the geocoder: sequenced autocomplete, place
// resolution, and promotion of a resolved candidate into the session's
// confirmed address.
type PlacesService struct {
	resolver resolver
	searcher *geocode.Searcher
	store    session.Store
	logger   *slog.Logger
}

// NewPlacesService creates the address service.
func NewPlacesService(r resolver, searcher *geocode.Searcher, store session.Store, logger *slog.Logger) *PlacesService {
	return &PlacesService{
		resolver: r,
		searcher: searcher,
		store:    store,
		logger:   logger,
	}
}

// Search runs a sequenced autocomplete for the given session. A not-ready
// geocoder surfaces SERVICE_LOADING while a warm-up attempt is kicked off in
// the background, so a later retry finds the service ready.
func (s *PlacesService) Search(ctx context.Context, sid, query string, seq uint64) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidInput("query must not be empty")
	}

	candidates, applied, err := s.searcher.Search(ctx, sid, query, seq)
	if err != nil {
		if errors.Is(err, apperrors.ErrServiceUnavail) {
			go s.warmUp()
		}
		return nil, err
	}
	if !applied {
		return &SearchResult{Seq: seq, Stale: true}, nil
	}
	return &SearchResult{Candidates: candidates, Seq: seq}, nil
}

// Resolve fetches geometry and components for a selected candidate.
func (s *PlacesService) Resolve(ctx context.Context, placeID string) (*geocode.Resolved, error) {
	if placeID == "" {
		return nil, apperrors.InvalidInput("place_id must not be empty")
	}
	return s.resolver.Resolve(ctx, placeID)
}

// ReverseResolve maps browser geolocation coordinates to an address.
func (s *PlacesService) ReverseResolve(ctx context.Context, lat, lng float64) (*geocode.Resolved, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.InvalidInput("coordinates out of range")
	}
	return s.resolver.ReverseResolve(ctx, lat, lng)
}

// ConfirmAddress promotes an address into the session. Resolved candidates
// are never auto-saved; this explicit confirmation is the only way an
// address reaches the session.
func (s *PlacesService) ConfirmAddress(ctx context.Context, sid string, addr domain.Address) (*domain.Session, error) {
	if strings.TrimSpace(addr.FullAddress) == "" {
		return nil, apperrors.InvalidInput("full_address must not be empty")
	}

	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	sess.Address = &addr
	if err := s.store.Save(ctx, sid, sess); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "address confirmed", slog.String("session_id", sid))
	return sess, nil
}

// WarmUp triggers the geocoder readiness probe. Called once at startup;
// failures are logged and retried lazily on the next not-ready search.
func (s *PlacesService) WarmUp() {
	s.warmUp()
}

func (s *PlacesService) warmUp() {
	ctx := context.Background()
	if err := s.resolver.Ready(ctx); err != nil {
		s.logger.Warn("geocoder warm-up failed", slog.String("error", err.Error()))
	}
}

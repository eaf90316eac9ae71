package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/geocode"
	"github.com/SIACAML/cooqu-order/internal/session"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
)

// fakeGeocoder stands in for the geocode client, for both the searcher and
// the resolver paths.
type fakeGeocoder struct {
	ready      atomic.Bool
	readyCalls atomic.Int32
	resolved   *geocode.Resolved
}

func (f *fakeGeocoder) Ready(ctx context.Context) error {
	f.readyCalls.Add(1)
	f.ready.Store(true)
	return nil
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) ([]geocode.Candidate, error) {
	if !f.ready.Load() {
		return nil, geocode.ErrLoading
	}
	return []geocode.Candidate{{PlaceID: "p-" + query, Description: query}}, nil
}

func (f *fakeGeocoder) Resolve(ctx context.Context, placeID string) (*geocode.Resolved, error) {
	return f.resolved, nil
}

func (f *fakeGeocoder) ReverseResolve(ctx context.Context, lat, lng float64) (*geocode.Resolved, error) {
	return f.resolved, nil
}

func newPlacesFixture(t *testing.T) (*PlacesService, *fakeGeocoder, *session.MemoryStore) {
	t.Helper()
	fake := &fakeGeocoder{resolved: &geocode.Resolved{
		Lat: 12.9758, Lng: 77.6045,
		FormattedAddress: "MG Road, Bengaluru",
		City:             "Bengaluru", State: "Karnataka",
	}}
	store := session.NewMemoryStore()
	searcher := geocode.NewSearcher(fake, 0)
	svc := NewPlacesService(fake, searcher, store, newTestLogger())
	return svc, fake, store
}

func TestPlacesSearch_Success(t *testing.T) {
	svc, fake, _ := newPlacesFixture(t)
	require.NoError(t, fake.Ready(context.Background()))

	result, err := svc.Search(context.Background(), "sid-1", "mg road", 1)

	require.NoError(t, err)
	assert.False(t, result.Stale)
	assert.Equal(t, uint64(1), result.Seq)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "p-mg road", result.Candidates[0].PlaceID)
}

func TestPlacesSearch_EmptyQuery(t *testing.T) {
	svc, _, _ := newPlacesFixture(t)

	_, err := svc.Search(context.Background(), "sid-1", "   ", 1)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestPlacesSearch_StaleSequence(t *testing.T) {
	svc, fake, _ := newPlacesFixture(t)
	ctx := context.Background()
	require.NoError(t, fake.Ready(ctx))

	_, err := svc.Search(ctx, "sid-1", "mg road metro", 5)
	require.NoError(t, err)

	result, err := svc.Search(ctx, "sid-1", "mg road", 3)
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Empty(t, result.Candidates)
}

func TestPlacesSearch_NotReadySurfacesLoading(t *testing.T) {
	svc, fake, _ := newPlacesFixture(t)

	_, err := svc.Search(context.Background(), "sid-1", "mg road", 1)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SERVICE_LOADING", appErr.Code)

	// A warm-up attempt was kicked off so a retry can succeed.
	assert.Eventually(t, func() bool { return fake.readyCalls.Load() > 0 },
		time.Second, 10*time.Millisecond)
}

func TestPlacesConfirmAddress(t *testing.T) {
	svc, _, store := newPlacesFixture(t)
	ctx := context.Background()

	sess, err := svc.ConfirmAddress(ctx, "sid-1", domain.Address{
		FullAddress: "12 Brigade Road, Bengaluru",
		HouseNo:     "12",
		City:        "Bengaluru",
		Pincode:     "560001",
	})

	require.NoError(t, err)
	require.NotNil(t, sess.Address)
	assert.Equal(t, "12", sess.Address.HouseNo)

	stored, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Address)
	assert.Equal(t, "12 Brigade Road, Bengaluru", stored.Address.FullAddress)
}

func TestPlacesConfirmAddress_RequiresFullAddress(t *testing.T) {
	svc, _, _ := newPlacesFixture(t)

	_, err := svc.ConfirmAddress(context.Background(), "sid-1", domain.Address{FullAddress: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestPlacesReverseResolve_RangeCheck(t *testing.T) {
	svc, _, _ := newPlacesFixture(t)

	_, err := svc.ReverseResolve(context.Background(), 91, 0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.ReverseResolve(context.Background(), 12.97, 77.60)
	assert.NoError(t, err)
}

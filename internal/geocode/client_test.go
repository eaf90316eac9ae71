package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// plainDoer satisfies Doer with a bare http.Client, no retry or breaker.
type plainDoer struct{}

func (plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req.WithContext(ctx))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", plainDoer{}, newTestLogger())
}

func geocoderStub(probeCount *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case reversePath:
			if probeCount != nil {
				probeCount.Add(1)
			}
			fmt.Fprint(w, `{"status":"OK","results":[`+detailsJSON+`]}`)
		case autocompletePath:
			fmt.Fprint(w, `{"status":"OK","predictions":[{"place_id":"p1","description":"MG Road, Bengaluru"}]}`)
		case detailsPath:
			fmt.Fprint(w, `{"status":"OK","result":`+detailsJSON+`}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(geocoderStub(nil))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "test-key", plainDoer{}, newTestLogger())

	assert.NoError(t, c.Ready(context.Background()))
}

func TestClient_SearchBeforeReady(t *testing.T) {
	c := newTestClient(t, geocoderStub(nil))

	_, err := c.Search(context.Background(), "mg road")

	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SERVICE_LOADING", appErr.Code)
}

func TestClient_ReadyThenSearch(t *testing.T) {
	c := newTestClient(t, geocoderStub(nil))
	ctx := context.Background()

	require.NoError(t, c.Ready(ctx))

	candidates, err := c.Search(ctx, "mg road")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p1", candidates[0].PlaceID)
	assert.Equal(t, "MG Road, Bengaluru", candidates[0].Description)
}

func TestClient_ConcurrentWarmUpSharesProbe(t *testing.T) {
	var probes atomic.Int32
	c := newTestClient(t, geocoderStub(&probes))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Ready(ctx))
		}()
	}
	wg.Wait()

	// Callers racing the first warm-up share one in-flight probe; callers
	// arriving after it see the ready flag and probe again never.
	assert.LessOrEqual(t, probes.Load(), int32(2))
	require.NoError(t, c.Ready(ctx))
	assert.LessOrEqual(t, probes.Load(), int32(2))
}

func TestClient_WarmUpRejectsDeniedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 with a refusing status, as a bad API key produces.
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","results":[]}`)
	})
	ctx := context.Background()

	err := c.Ready(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")

	_, err = c.Search(ctx, "mg road")
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestClient_WarmUpAcceptsZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	assert.NoError(t, c.Ready(context.Background()))
}

func TestClient_FailedWarmUpRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		geocoderStub(nil)(w, r)
	})
	ctx := context.Background()

	require.Error(t, c.Ready(ctx))
	_, err := c.Search(ctx, "mg road")
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))

	// The next attempt probes again and succeeds.
	require.NoError(t, c.Ready(ctx))
	_, err = c.Search(ctx, "mg road")
	assert.NoError(t, err)
}

func TestClient_Resolve(t *testing.T) {
	c := newTestClient(t, geocoderStub(nil))

	r, err := c.Resolve(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, 12.9758, r.Lat)
	assert.Equal(t, "Bengaluru", r.City)
	assert.Equal(t, "560001", r.Pincode)
}

func TestClient_ReverseResolve(t *testing.T) {
	var gotLatLng string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotLatLng = r.URL.Query().Get("latlng")
		geocoderStub(nil)(w, r)
	})

	r, err := c.ReverseResolve(context.Background(), 12.9758, 77.6045)

	require.NoError(t, err)
	assert.Equal(t, "12.9758,77.6045", gotLatLng)
	assert.Equal(t, "Karnataka", r.State)
}

func TestClient_ReverseResolveNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	_, err := c.ReverseResolve(context.Background(), 0.001, 0.001)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestClient_SearchSendsKeyAndQuery(t *testing.T) {
	var gotInput, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == autocompletePath {
			gotInput = r.URL.Query().Get("input")
			gotKey = r.URL.Query().Get("key")
		}
		geocoderStub(nil)(w, r)
	})
	ctx := context.Background()
	require.NoError(t, c.Ready(ctx))

	_, err := c.Search(ctx, "mg road")

	require.NoError(t, err)
	assert.Equal(t, "mg road", gotInput)
	assert.Equal(t, "test-key", gotKey)
}

package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/citizen/models"
	"civitas/internal/platform/metrics"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/circuit"
	"civitas/pkg/requestcontext"
)

func TestParseResponse(t *testing.T) {
	citizen := id.CitizenID(uuid.MustParse("0b6c1d7e-4a1f-4c55-9d0e-8f1a2b3c4d5e"))

	t.Run("plain birth date", func(t *testing.T) {
		body := []byte(`{"id":"0b6c1d7e-4a1f-4c55-9d0e-8f1a2b3c4d5e","fullName":" Maria Souza ","birthDate":"1990-05-15"}`)
		entry, err := parseResponse(http.StatusOK, body, citizen)
		require.NoError(t, err)
		assert.Equal(t, "Maria Souza", entry.FullName)
		require.NotNil(t, entry.BirthDate)
		assert.Equal(t, time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC), *entry.BirthDate)
	})

	t.Run("timestamp birth date is truncated to the day", func(t *testing.T) {
		entry, err := parseResponse(http.StatusOK, []byte(`{"fullName":"Ana","birthDate":"2010-01-02T15:04:05-03:00"}`), citizen)
		require.NoError(t, err)
		require.NotNil(t, entry.BirthDate)
		assert.Equal(t, time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC), *entry.BirthDate)
	})

	t.Run("unparseable birth date is dropped", func(t *testing.T) {
		entry, err := parseResponse(http.StatusOK, []byte(`{"fullName":"Ana","birthDate":"02/01/2010"}`), citizen)
		require.NoError(t, err)
		assert.Nil(t, entry.BirthDate)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := parseResponse(http.StatusNotFound, nil, citizen)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("server error", func(t *testing.T) {
		_, err := parseResponse(http.StatusBadGateway, nil, citizen)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseResponse(http.StatusOK, []byte(`{invalid`), citizen)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("answer for another citizen", func(t *testing.T) {
		_, err := parseResponse(http.StatusOK, []byte(`{"id":"`+uuid.NewString()+`","fullName":"X"}`), citizen)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

// stubDirectory serves one citizen and can be switched into failure mode.
type stubDirectory struct {
	known   id.CitizenID
	failing atomic.Bool
	calls   atomic.Int32
	lastRID atomic.Value
}

func (d *stubDirectory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.calls.Add(1)
	d.lastRID.Store(r.Header.Get("X-Request-ID"))
	if d.failing.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Path != "/citizens/"+d.known.String() {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"` + d.known.String() + `","fullName":"João Lima","birthDate":"2012-07-01"}`))
}

func newClient(t *testing.T, stub *stubDirectory, ttl time.Duration) (*Client, *metrics.Metrics, *Cache) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	m := metrics.New(prometheus.NewRegistry())
	cache := NewCache(ttl, 10)
	c := New(srv.URL+"/", time.Second,
		WithCache(cache),
		WithMetrics(m),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
	)
	return c, m, cache
}

func TestClientLookup(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")

	t.Run("hit then cache", func(t *testing.T) {
		stub := &stubDirectory{known: id.CitizenID(uuid.New())}
		c, m, _ := newClient(t, stub, time.Hour)

		entry, err := c.Lookup(ctx, stub.known)
		require.NoError(t, err)
		assert.Equal(t, "João Lima", entry.FullName)
		assert.Equal(t, "req-42", stub.lastRID.Load())

		_, err = c.Lookup(ctx, stub.known)
		require.NoError(t, err)
		assert.EqualValues(t, 1, stub.calls.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("hit")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("cache")))
	})

	t.Run("unknown citizen", func(t *testing.T) {
		stub := &stubDirectory{known: id.CitizenID(uuid.New())}
		c, m, _ := newClient(t, stub, time.Hour)

		_, err := c.Lookup(ctx, id.CitizenID(uuid.New()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("miss")))
		assert.False(t, c.breaker.IsOpen())
	})

	t.Run("stale entries serve as fallback while the directory is down", func(t *testing.T) {
		stub := &stubDirectory{known: id.CitizenID(uuid.New())}
		c, m, cache := newClient(t, stub, time.Minute)

		_, err := c.Lookup(ctx, stub.known)
		require.NoError(t, err)
		cache.now = func() time.Time { return time.Now().Add(time.Hour) }
		stub.failing.Store(true)

		entry, err := c.Lookup(ctx, stub.known)
		require.NoError(t, err)
		assert.Equal(t, "João Lima", entry.FullName)

		_, err = c.Lookup(ctx, id.CitizenID(uuid.New()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.True(t, c.breaker.IsOpen())

		calls := stub.calls.Load()
		_, err = c.Lookup(ctx, stub.known)
		require.NoError(t, err)
		assert.Equal(t, calls, stub.calls.Load(), "open breaker serves cached entries without a request")
		assert.Equal(t, 2.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("fallback")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues("error")))

		stub.failing.Store(false)
		_, err = c.Lookup(ctx, id.CitizenID(uuid.New()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.False(t, c.breaker.IsOpen(), "a healthy answer closes the breaker")
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		stub := &stubDirectory{known: id.CitizenID(uuid.New())}
		c, _, _ := newClient(t, stub, time.Hour)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.Lookup(cctx, stub.known)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(time.Hour, 2)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	cache.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	ids := []id.CitizenID{id.CitizenID(uuid.New()), id.CitizenID(uuid.New()), id.CitizenID(uuid.New())}
	for _, cid := range ids {
		cache.Save(&models.DirectoryEntry{CitizenID: cid})
	}
	_, _, ok := cache.Get(ids[0])
	assert.False(t, ok, "oldest entry evicted")
	_, _, ok = cache.Get(ids[2])
	assert.True(t, ok)
}

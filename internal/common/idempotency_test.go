package common

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdemClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func idemRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	idem := Idem{R: newIdemClient(t), TTL: time.Minute}
	var calls int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idemRequest("order-abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	h.ServeHTTP(replay, idemRequest("order-abc"))
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Contains(t, replay.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	idem := Idem{R: newIdemClient(t), TTL: time.Minute}
	var fail atomic.Bool
	fail.Store(true)
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "boom", nil)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idemRequest("order-retry"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// the failed attempt must not consume the key
	fail.Store(false)
	retry := httptest.NewRecorder()
	h.ServeHTTP(retry, idemRequest("order-retry"))
	require.Equal(t, http.StatusCreated, retry.Code)

	replay := httptest.NewRecorder()
	h.ServeHTTP(replay, idemRequest("order-retry"))
	require.Equal(t, http.StatusConflict, replay.Code)
}

func TestIdempotencyKeepsKeyOnClientError(t *testing.T) {
	idem := Idem{R: newIdemClient(t), TTL: time.Minute}
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_SKU", "no such product", nil)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idemRequest("order-bad-sku"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	replay := httptest.NewRecorder()
	h.ServeHTTP(replay, idemRequest("order-bad-sku"))
	require.Equal(t, http.StatusConflict, replay.Code)
}

func TestIdempotencyPassThroughWithoutKey(t *testing.T) {
	idem := Idem{R: newIdemClient(t), TTL: time.Minute}
	var calls int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, idemRequest(""))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

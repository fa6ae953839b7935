package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyRetriesUntilFirstSuccess(t *testing.T) {
	calls := 0
	fail := true
	r := &readyOnce{}
	r.Add(readyFunc(func(context.Context) error {
		calls++
		if fail {
			return errors.New("not yet")
		}
		return nil
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	fail = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// once ready, always ready; the checks do not run again
	fail = true
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestReadyConcurrentRequests(t *testing.T) {
	calls := 0 // written under readyOnce's lock
	r := &readyOnce{}
	r.Add(readyFunc(func(context.Context) error {
		calls++
		return nil
	}))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Ready(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls, "checks run once, not per request")
}

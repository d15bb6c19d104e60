package cdnpurge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudflare_Purge_SuccessOnFirstTry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(purgeResponse{Success: true})
	}))
	defer srv.Close()

	c := NewCloudflare(srv.URL, "zone1", "token", nil)
	err := c.Purge(context.Background(), []string{"http://h/u/survival/mods/foo.jar"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCloudflare_Purge_RetriesOnProviderFailureThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// HTTP 200 but provider-level failure in the body — success must be
		// read from the body field, not the status code.
		_ = json.NewEncoder(w).Encode(purgeResponse{Success: false})
	}))
	defer srv.Close()

	c := NewCloudflare(srv.URL, "zone1", "token", nil)
	err := c.Purge(context.Background(), []string{"http://h/u/foo"})
	require.Error(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls)) // 1 + 3 retries
}

func TestCloudflare_Purge_EmptyURLsIsNoop(t *testing.T) {
	c := NewCloudflare("http://unused", "zone1", "token", nil)
	err := c.Purge(context.Background(), nil)
	require.NoError(t, err)
}

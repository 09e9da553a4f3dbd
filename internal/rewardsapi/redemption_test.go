package rewardsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusward/tokengate/internal/errors"
)

func newRedemptionServer(t *testing.T, handler http.HandlerFunc) *RedemptionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRedemptionClient(srv.URL, "hunt-key", 0)
	require.NoError(t, err)
	return client
}

func TestPhaseConfigFetch(t *testing.T) {
	client := newRedemptionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/redemption/phase", r.URL.Path)
		assert.Equal(t, "hunt-key", r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"genesisTimestamp":1700000000,"incrementPeriod":600,"incrementCount":10}`))
	})

	cfg, err := client.PhaseConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), cfg.GenesisTimestamp)
	assert.Equal(t, int64(600), cfg.IncrementPeriod)
	assert.Equal(t, int64(10), cfg.IncrementCount)
}

func TestThawScheduleDecodesEntries(t *testing.T) {
	client := newRedemptionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/redemption/thaw/addr1", r.URL.Path)
		w.Write([]byte(`[{"amount":"100","status":"redeemable"},{"amount":"50","status":"locked"}]`))
	})

	entries, err := client.ThawSchedule(context.Background(), "addr1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ThawStatusRedeemable, entries[0].Status)
	assert.Equal(t, "locked", entries[1].Status)
}

func TestSubmitTransactionReturnsHash(t *testing.T) {
	client := newRedemptionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/redemption/submit", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"txHash":"hash00"}`))
	})

	hash, err := client.SubmitTransaction(context.Background(), "txid00", "signed00", "witness00")
	require.NoError(t, err)
	assert.Equal(t, "hash00", hash)
}

func TestRedemptionAPIErrorSurfacesType(t *testing.T) {
	client := newRedemptionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"already_redeemed","message":"entry spent"}`))
	})

	_, err := client.BuildTransaction(context.Background(), "addr1", "aa", 0)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "already_redeemed", apiErr.ErrorType)
	assert.Equal(t, "redemption", apiErr.Service)
}

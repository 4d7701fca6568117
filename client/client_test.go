package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxconvert/provider/currencies"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()

	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		_, _ = w.Write([]byte(body))
	}))

	t.Cleanup(srv.Close)

	return srv, &gotPath
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		srv, gotPath := newTestServer(t, http.StatusOK, `{
			"success": true,
			"data": {"base": "USD", "rates": {"USD": 1, "EUR": 0.92}, "timestamp": 1760000000000}
		}`)

		c := New(srv.URL+"/", WithHTTPClient(srv.Client()))

		snapshot, err := c.Fetch(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "/v1/rates", *gotPath)
		assert.Equal(t, currencies.USD, snapshot.Base)
		assert.InDelta(t, 0.92, snapshot.Rates[currencies.EUR], 1e-9)
		assert.EqualValues(t, 1760000000000, snapshot.Timestamp)
	})

	t.Run("server reported failure", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestServer(
			t,
			http.StatusInternalServerError,
			`{"success": false, "error": "Failed to fetch exchange rates"}`,
		)

		_, err := New(srv.URL).Fetch(context.Background())

		assert.ErrorIs(t, err, ErrRatesUnavailable)
	})

	t.Run("success without data", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestServer(t, http.StatusOK, `{"success": true}`)

		_, err := New(srv.URL).Fetch(context.Background())

		assert.ErrorIs(t, err, ErrRatesUnavailable)
	})

	t.Run("non-JSON error status", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestServer(t, http.StatusBadGateway, "bad gateway")

		_, err := New(srv.URL).Fetch(context.Background())

		assert.ErrorContains(t, err, "invalid status code received: 502")
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestServer(t, http.StatusOK, "{")

		_, err := New(srv.URL).Fetch(context.Background())

		assert.ErrorContains(t, err, "unable to decode response")
	})

	t.Run("invalid base URL", func(t *testing.T) {
		t.Parallel()

		_, err := New("http://::1]").Fetch(context.Background())

		assert.ErrorContains(t, err, "unable to parse base URL")
	})
}

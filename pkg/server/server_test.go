package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariefwacht/tariefwacht/pkg/coordinator"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

type fakePrices struct {
	snap         *types.Snapshot
	refreshErr   error
	refreshCalls int
}

func (f *fakePrices) Refresh(ctx context.Context) (*types.Snapshot, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.snap, nil
}

func (f *fakePrices) Snapshot() *types.Snapshot {
	return f.snap
}

var testNow = time.Date(2024, 1, 1, 12, 7, 0, 0, time.UTC)

func newTestServer(p Prices) *Server {
	return &Server{
		prices:     p,
		serverName: "tariefwacht",
		now:        func() time.Time { return testNow },
	}
}

func testSnapshot() *types.Snapshot {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &types.Snapshot{
		Electricity: types.PriceSeries{
			{From: start, Price: 0.25},
			{From: start.Add(15 * time.Minute), Price: 0.30},
		},
		Gas: types.PriceSeries{
			{From: start, Price: 1.10},
		},
		TomorrowAvailable: true,
		RefreshedAt:       start,
	}
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.setupHandler().ServeHTTP(w, req)
	return w
}

func TestStateEndpoints(t *testing.T) {
	t.Run("NoSnapshotYet", func(t *testing.T) {
		s := newTestServer(&fakePrices{})
		for _, path := range []string{
			"/api/state",
			"/api/prices/electricity",
			"/api/prices/electricity/current",
			"/api/prices/gas",
			"/api/prices/gas/current",
			"/api/tomorrow",
		} {
			w := doRequest(t, s, http.MethodGet, path)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		}
	})

	t.Run("State", func(t *testing.T) {
		s := newTestServer(&fakePrices{snap: testSnapshot()})
		w := doRequest(t, s, http.MethodGet, "/api/state")
		require.Equal(t, http.StatusOK, w.Code)

		var res stateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.NotNil(t, res.CurrentElectricityPrice)
		assert.Equal(t, 0.25, *res.CurrentElectricityPrice)
		require.NotNil(t, res.CurrentGasPrice)
		assert.Equal(t, 1.10, *res.CurrentGasPrice)
		assert.True(t, res.TomorrowAvailable)
		assert.Len(t, res.Electricity, 2)
		assert.Len(t, res.Gas, 1)
	})

	t.Run("StateOutsideWindow", func(t *testing.T) {
		snap := testSnapshot()
		// gas only covers 12:00-12:15; move its point away from now
		snap.Gas = types.PriceSeries{{From: testNow.Add(time.Hour), Price: 2}}
		s := newTestServer(&fakePrices{snap: snap})

		w := doRequest(t, s, http.MethodGet, "/api/state")
		require.Equal(t, http.StatusOK, w.Code)

		var res stateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Nil(t, res.CurrentGasPrice, "no current gas price outside every interval")
		assert.NotNil(t, res.CurrentElectricityPrice)
	})

	t.Run("CurrentElectricity", func(t *testing.T) {
		s := newTestServer(&fakePrices{snap: testSnapshot()})
		w := doRequest(t, s, http.MethodGet, "/api/prices/electricity/current")
		require.Equal(t, http.StatusOK, w.Code)

		var res currentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 0.25, res.Price)
	})

	t.Run("CurrentGasNotFound", func(t *testing.T) {
		snap := testSnapshot()
		snap.Gas = types.PriceSeries{}
		s := newTestServer(&fakePrices{snap: snap})

		w := doRequest(t, s, http.MethodGet, "/api/prices/gas/current")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Series", func(t *testing.T) {
		s := newTestServer(&fakePrices{snap: testSnapshot()})
		w := doRequest(t, s, http.MethodGet, "/api/prices/electricity")
		require.Equal(t, http.StatusOK, w.Code)

		var series types.PriceSeries
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
		require.Len(t, series, 2)
		assert.Equal(t, 0.30, series[1].Price)
	})

	t.Run("Tomorrow", func(t *testing.T) {
		s := newTestServer(&fakePrices{snap: testSnapshot()})
		w := doRequest(t, s, http.MethodGet, "/api/tomorrow")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"available": true}`, w.Body.String())
	})

	t.Run("ServerHeader", func(t *testing.T) {
		s := newTestServer(&fakePrices{snap: testSnapshot()})
		w := doRequest(t, s, http.MethodGet, "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tariefwacht", w.Header().Get("Server"))
	})
}

func TestHandleUpdate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := &fakePrices{snap: testSnapshot()}
		s := newTestServer(f)

		w := doRequest(t, s, http.MethodPost, "/api/update")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, f.refreshCalls)

		var res map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "success", res["status"])
		assert.Equal(t, true, res["tomorrowAvailable"])
	})

	t.Run("AuthFailure", func(t *testing.T) {
		f := &fakePrices{refreshErr: coordinator.ErrAuthFailed}
		s := newTestServer(f)

		w := doRequest(t, s, http.MethodPost, "/api/update")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "authentication")
	})

	t.Run("UpdateFailure", func(t *testing.T) {
		f := &fakePrices{refreshErr: coordinator.ErrUpdateFailed}
		s := newTestServer(f)

		w := doRequest(t, s, http.MethodPost, "/api/update")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "refresh failed")
	})

	t.Run("GetNotAllowed", func(t *testing.T) {
		s := newTestServer(&fakePrices{snap: testSnapshot()})
		w := doRequest(t, s, http.MethodGet, "/api/update")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

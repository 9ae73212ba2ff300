package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tariefwacht/tariefwacht/pkg/coordinator"
	"github.com/tariefwacht/tariefwacht/pkg/log"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

// stateResponse is the full published state: the facts a dashboard needs in
// one call.
type stateResponse struct {
	CurrentElectricityPrice *float64          `json:"currentElectricityPrice"`
	CurrentGasPrice         *float64          `json:"currentGasPrice"`
	Electricity             types.PriceSeries `json:"electricity"`
	Gas                     types.PriceSeries `json:"gas"`
	TomorrowAvailable       bool              `json:"tomorrowAvailable"`
	RefreshedAt             time.Time         `json:"refreshedAt"`
}

// snapshot fetches the latest snapshot or writes a 503 when no cycle has
// completed yet.
func (s *Server) snapshot(w http.ResponseWriter) (*types.Snapshot, bool) {
	snap := s.prices.Snapshot()
	if snap == nil {
		writeJSONError(w, "no prices fetched yet", http.StatusServiceUnavailable)
		return nil, false
	}
	return snap, true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	now := s.now()
	res := stateResponse{
		Electricity:       snap.Electricity,
		Gas:               snap.Gas,
		TomorrowAvailable: snap.TomorrowAvailable,
		RefreshedAt:       snap.RefreshedAt,
	}
	if p, ok := snap.CurrentElectricityPrice(now); ok {
		res.CurrentElectricityPrice = &p
	}
	if p, ok := snap.CurrentGasPrice(now); ok {
		res.CurrentGasPrice = &p
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleElectricitySeries(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Electricity)
}

func (s *Server) handleGasSeries(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Gas)
}

// currentResponse is one price point paired with its interval start.
type currentResponse struct {
	From  time.Time `json:"from"`
	Price float64   `json:"price"`
}

func (s *Server) writeCurrent(w http.ResponseWriter, series types.PriceSeries) {
	p, ok := series.At(s.now())
	if !ok {
		writeJSONError(w, "no price for the current interval", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, currentResponse{From: p.From, Price: p.Price})
}

func (s *Server) handleElectricityCurrent(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	s.writeCurrent(w, snap.Electricity)
}

func (s *Server) handleGasCurrent(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	s.writeCurrent(w, snap.Gas)
}

func (s *Server) handleTomorrow(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Available bool `json:"available"`
	}{Available: snap.TomorrowAvailable})
}

// handleUpdate triggers a refresh cycle outside the regular schedule.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := s.prices.Refresh(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "manual refresh failed", slog.Any("error", err))
		if errors.Is(err, coordinator.ErrAuthFailed) {
			writeJSONError(w, "authentication against the portal failed", http.StatusBadGateway)
			return
		}
		writeJSONError(w, "refresh failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Status            string    `json:"status"`
		TomorrowAvailable bool      `json:"tomorrowAvailable"`
		RefreshedAt       time.Time `json:"refreshedAt"`
	}{
		Status:            "success",
		TomorrowAvailable: snap.TomorrowAvailable,
		RefreshedAt:       snap.RefreshedAt,
	})
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tazlauanubianca/Crowdsensing/internal/history"
)

// runResponse summarises the attached run.
type runResponse struct {
	RunID           string `json:"run_id"`
	Scenario        string `json:"scenario"`
	Status          string `json:"status"`
	Devices         int    `json:"devices"`
	TotalRounds     int    `json:"total_rounds"`
	CompletedRounds int    `json:"completed_rounds"`
	Error           string `json:"error,omitempty"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, _ *http.Request) {
	run := s.currentRun()
	if run == nil {
		writeNotFound(w, "no simulation attached")
		return
	}

	sc := run.Scenario()
	resp := runResponse{
		RunID:           run.RunID(),
		Scenario:        sc.Name,
		Status:          string(run.Status()),
		Devices:         len(sc.Devices),
		TotalRounds:     sc.TotalRounds(),
		CompletedRounds: len(run.Rounds()),
	}
	if err := run.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	run := s.currentRun()
	if run == nil {
		writeNotFound(w, "no simulation attached")
		return
	}
	states := run.DeviceStates()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": states,
		"count":   len(states),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	run := s.currentRun()
	if run == nil {
		writeNotFound(w, "no simulation attached")
		return
	}
	for _, st := range run.DeviceStates() {
		if st.ID == id {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	writeNotFound(w, "device not found")
}

func (s *Server) handleListRounds(w http.ResponseWriter, _ *http.Request) {
	run := s.currentRun()
	if run == nil {
		writeNotFound(w, "no simulation attached")
		return
	}
	rounds := run.Rounds()
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.RunID(),
		"rounds": rounds,
		"count":  len(rounds),
	})
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(w, r, "round")
	if !ok {
		return
	}
	run := s.currentRun()
	if run == nil {
		writeNotFound(w, "no simulation attached")
		return
	}
	rounds := run.Rounds()
	if n < 1 || n > len(rounds) {
		writeNotFound(w, "round not completed")
		return
	}
	writeJSON(w, http.StatusOK, rounds[n-1])
}

func (s *Server) handleListHistoryRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "round history is disabled")
		return
	}
	runs, err := s.history.ListRuns(r.Context())
	if err != nil {
		s.logger.Error("listing runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetHistoryRound(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "round history is disabled")
		return
	}
	n, ok := intParam(w, r, "round")
	if !ok {
		return
	}

	round, err := s.history.GetRound(r.Context(), chi.URLParam(r, "runID"), n)
	switch {
	case errors.Is(err, history.ErrRunNotFound), errors.Is(err, history.ErrRoundNotFound):
		writeNotFound(w, err.Error())
	case err != nil:
		s.logger.Error("loading round", "error", err)
		writeInternalError(w, "failed to load round")
	default:
		writeJSON(w, http.StatusOK, round)
	}
}

func (s *Server) handleLocationSeries(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "round history is disabled")
		return
	}
	loc, ok := intParam(w, r, "location")
	if !ok {
		return
	}

	series, err := s.history.LocationSeries(r.Context(), chi.URLParam(r, "runID"), loc)
	switch {
	case errors.Is(err, history.ErrRunNotFound):
		writeNotFound(w, err.Error())
	case err != nil:
		s.logger.Error("loading location series", "error", err)
		writeInternalError(w, "failed to load location series")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"location": loc,
			"rounds":   series,
			"count":    len(series),
		})
	}
}

// intParam parses a numeric URL parameter, writing a 400 on failure.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, "invalid "+name+": must be an integer")
		return 0, false
	}
	return v, true
}

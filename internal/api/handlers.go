package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/smartlock-core/internal/attendance"
	"github.com/nerrad567/smartlock-core/internal/coordinator"
	"github.com/nerrad567/smartlock-core/internal/message"
)

const dateLayout = "2006-01-02"

// healthResponse is the /healthz body.
type healthResponse struct {
	Status    string           `json:"status"` // ok | degraded
	Version   string           `json:"version"`
	Bus       string           `json:"bus"`
	Telemetry string           `json:"telemetry,omitempty"` // ok | unreachable; absent when disabled
	Mode      coordinator.Mode `json:"mode,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// handleHealth reports 200 while the bus is connected and 503 otherwise.
// Telemetry is optional, so its state is reported without affecting the code.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: s.version,
		Bus:     "connected",
	}
	if s.state != nil {
		resp.Mode = s.state.Snapshot().Mode()
	}
	if s.telemetry != nil {
		resp.Telemetry = "ok"
		if err := s.telemetry.HealthCheck(r.Context()); err != nil {
			resp.Telemetry = "unreachable"
			s.logger.Debug("telemetry health check failed", "error", err)
		}
	}
	status := http.StatusOK
	if err := s.bus.HealthCheck(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Bus = "disconnected"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// stateResponse is the /state body: the bus snapshot plus the derived mode.
type stateResponse struct {
	message.State
	Mode coordinator.Mode `json:"mode"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	if s.state == nil {
		writeUnavailable(w, "coordinator not running on this node")
		return
	}
	snap := s.state.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{State: snap.Message(), Mode: snap.Mode()})
}

// attendanceResponse lists one day's records.
type attendanceResponse struct {
	Date    string              `json:"date"`
	Records []attendance.Record `json:"records"`
}

// handleListAttendance returns the attendance for ?date=YYYY-MM-DD,
// defaulting to today in the server's local time.
func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	if s.attendance == nil {
		writeUnavailable(w, "attendance not configured")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		writeBadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	records, err := s.attendance.ListByDate(r.Context(), date)
	if err != nil {
		s.logger.Error("failed to list attendance", "date", date, "error", err)
		writeInternalError(w, "failed to list attendance")
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}

	writeJSON(w, http.StatusOK, attendanceResponse{Date: date, Records: records})
}

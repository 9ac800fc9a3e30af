package handlers

import (
	"net/http"
	"time"

	"github.com/3leaps/goferry/pkg/transfer"
)

// SnapshotSource exposes the transfer in flight. *transfer.Reporter
// implements it.
type SnapshotSource interface {
	Snapshot() (transfer.Snapshot, bool)
}

// ProgressResponse is the body of GET /progress.
type ProgressResponse struct {
	Active  bool               `json:"active"`
	Session *transfer.Snapshot `json:"session,omitempty"`

	// Percent is by bytes, the way the pipeline estimates.
	Percent float64  `json:"percent,omitempty"`
	ETASecs *float64 `json:"eta_secs,omitempty"`
}

// ProgressHandler serves the live counters of src.
func ProgressHandler(src SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := src.Snapshot()
		if !ok {
			writeJSON(w, http.StatusOK, ProgressResponse{})
			return
		}

		resp := ProgressResponse{Active: true, Session: &snap}
		if snap.BytesTotal > 0 {
			resp.Percent = float64(snap.BytesDone) / float64(snap.BytesTotal) * 100
		}
		if eta, ok := transfer.ByteETA(snap.BytesTotal, snap.BytesDone, snap.Elapsed); ok {
			secs := eta.Round(time.Second).Seconds()
			resp.ETASecs = &secs
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

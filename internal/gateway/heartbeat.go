package gateway

import (
	"context"
	"log/slog"
	"time"
)

const (
	heartbeatCheckInterval = 30 * time.Second
	defaultStaleAfter      = 30 * time.Minute
)

// HeartbeatMonitor periodically derives the pipeline's health from the time
// of the last processed entry and broadcasts a "pipeline.health" event when
// it changes.
type HeartbeatMonitor struct {
	gw         *Gateway
	staleAfter time.Duration
	now        func() time.Time
	lastStatus string
}

func newHeartbeatMonitor(gw *Gateway, staleAfter time.Duration) *HeartbeatMonitor {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &HeartbeatMonitor{gw: gw, staleAfter: staleAfter, now: time.Now}
}

func (h *HeartbeatMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evaluate()
		}
	}
}

func (h *HeartbeatMonitor) evaluate() {
	hs := h.computeStatus()
	if hs.Status != h.lastStatus {
		h.lastStatus = hs.Status
		h.gw.broadcaster.send(SSEEvent{Type: "pipeline.health", Payload: hs})
		slog.Info("gateway: pipeline health changed", "status", hs.Status, "message", hs.Message)
	}
}

// computeStatus is safe to call from any goroutine.
func (h *HeartbeatMonitor) computeStatus() HeartbeatStatus {
	h.gw.mu.RLock()
	lastAt := h.gw.lastEntryAt
	startedAt := h.gw.startedAt
	h.gw.mu.RUnlock()

	now := h.now()
	if lastAt.IsZero() {
		if now.Sub(startedAt) > h.staleAfter {
			return HeartbeatStatus{
				Status:      "stale",
				IdleForSecs: int64(now.Sub(startedAt).Seconds()),
				Message:     "No audit entry has been processed since start.",
			}
		}
		return HeartbeatStatus{Status: "idle", Message: "Waiting for the first audit entry."}
	}

	since := now.Sub(lastAt)
	hs := HeartbeatStatus{LastEntryAt: lastAt.UTC().Format(time.RFC3339)}
	if since > h.staleAfter {
		hs.Status = "stale"
		hs.IdleForSecs = int64(since.Seconds())
		hs.Message = "No audit entry processed recently. Check the gateway connection and intents."
		return hs
	}
	hs.Status = "healthy"
	hs.Message = "Entries are flowing."
	return hs
}

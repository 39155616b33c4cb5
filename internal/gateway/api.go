package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

// buildHandler wires all REST and SSE routes onto a new ServeMux.
// Uses Go 1.22+ method-prefixed patterns ("GET /path", "PUT /path").
func buildHandler(gw *Gateway) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", gw.handleRoot)

	// Health / status
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /api/status", gw.handleStatus)
	mux.HandleFunc("GET /api/actions", gw.handleActions)

	// Recorded entries
	mux.HandleFunc("GET /api/audit-logs", gw.handleListAuditLogs)
	mux.HandleFunc("GET /api/audit-logs/{id}", gw.handleGetAuditLog)

	// Log channel mappings
	mux.HandleFunc("GET /api/guilds/{guild_id}/log-channels", gw.handleListLogChannels)
	mux.HandleFunc("PUT /api/guilds/{guild_id}/log-channels/{name}", gw.handlePutLogChannel)
	mux.HandleFunc("DELETE /api/guilds/{guild_id}/log-channels/{name}", gw.handleDeleteLogChannel)

	// Ban sync
	mux.HandleFunc("GET /api/sync-ban/users", gw.handleListSyncBanUsers)
	mux.HandleFunc("PUT /api/guilds/{guild_id}/sync-ban", gw.handleSyncBan(true))
	mux.HandleFunc("DELETE /api/guilds/{guild_id}/sync-ban", gw.handleSyncBan(false))

	// Server-Sent Events stream
	mux.HandleFunc("GET /events", gw.handleEvents)

	mux.Handle("GET /metrics", gw.metrics)

	return mux
}

func (gw *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   "dragonlog gateway",
		"status": "running",
		"endpoints": []string{
			"GET /health",
			"GET /api/status",
			"GET /api/actions",
			"GET /api/audit-logs",
			"GET /api/audit-logs/{id}",
			"GET /api/guilds/{guild_id}/log-channels",
			"PUT /api/guilds/{guild_id}/log-channels/{name}",
			"DELETE /api/guilds/{guild_id}/log-channels/{name}",
			"GET /api/sync-ban/users",
			"PUT /api/guilds/{guild_id}/sync-ban",
			"DELETE /api/guilds/{guild_id}/sync-ban",
			"GET /events",
			"GET /metrics",
		},
	})
}

func (gw *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := gw.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "pipeline": gw.heartbeat.computeStatus()})
}

func (gw *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gw.currentStatus())
}

func (gw *Gateway) handleActions(w http.ResponseWriter, r *http.Request) {
	descs := gw.reg.Descriptors()
	out := make([]ActionInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, ActionInfo{
			Action:      d.Action(),
			Type:        audit.TypeOf(d.Action()),
			Category:    d.Category(),
			LogChannel:  d.Action().LogChannelName(),
			Implemented: !d.Stub(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (gw *Gateway) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	p := parsePaginationParams(r, 50, 500)
	q := r.URL.Query()
	f := store.AuditLogFilter{
		GuildID: strings.TrimSpace(q.Get("guild_id")),
		Action:  strings.ToLower(strings.TrimSpace(q.Get("action"))),
		Limit:   p.PageSize,
		Offset:  p.Offset,
	}
	rows, total, err := gw.store.ListAuditLogs(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newPage(rows, p, total))
}

func (gw *Gateway) handleGetAuditLog(w http.ResponseWriter, r *http.Request) {
	// Gateway-synthesised entries carry UUIDs rather than snowflakes.
	id := r.PathValue("id")
	if err := validate.Var(id, "required,max=64"); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", id))
		return
	}
	row := &models.AuditLog{ID: id}
	found, err := gw.store.FindByID(r.Context(), row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("audit log %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (gw *Gateway) handleListLogChannels(w http.ResponseWriter, r *http.Request) {
	guildID, err := snowflakeParam(r, "guild_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := gw.store.LogChannels(r.Context(), guildID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []models.LogChannel{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// knownLogChannel reports whether name is GLOBAL or the log channel of a
// registered action.
func (gw *Gateway) knownLogChannel(name string) bool {
	if name == audit.Global {
		return true
	}
	for _, d := range gw.reg.Descriptors() {
		if d.Action().LogChannelName() == name {
			return true
		}
	}
	return false
}

func (gw *Gateway) handlePutLogChannel(w http.ResponseWriter, r *http.Request) {
	guildID, err := snowflakeParam(r, "guild_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.ToUpper(r.PathValue("name"))
	if !gw.knownLogChannel(name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown log channel %q", name))
		return
	}
	var req logChannelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := gw.store.SetLogChannel(r.Context(), guildID, name, req.ChannelID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	row := models.LogChannel{GuildID: guildID, Name: name, ChannelID: req.ChannelID, UpdatedAt: store.Now()}
	gw.broadcaster.send(SSEEvent{Type: "log_channel.updated", Payload: row})
	writeJSON(w, http.StatusOK, row)
}

func (gw *Gateway) handleDeleteLogChannel(w http.ResponseWriter, r *http.Request) {
	guildID, err := snowflakeParam(r, "guild_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.ToUpper(r.PathValue("name"))
	removed, err := gw.store.RemoveLogChannel(r.Context(), guildID, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s log channel for guild %s", name, guildID))
		return
	}
	gw.broadcaster.send(SSEEvent{Type: "log_channel.removed", Payload: map[string]string{"guild_id": guildID, "name": name}})
	w.WriteHeader(http.StatusNoContent)
}

func (gw *Gateway) handleListSyncBanUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := gw.store.SyncBanUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []models.SyncBanUser{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (gw *Gateway) handleSyncBan(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := snowflakeParam(r, "guild_id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := gw.store.SetSyncBan(r.Context(), guildID, enabled); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"guild_id": guildID, "sync_ban": enabled})
	}
}

// handleEvents streams SSE to the client. Each frame is a JSON SSEEvent.
// Clients receive a "connected" event immediately, then live updates.
func (gw *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if behind a proxy

	ch := gw.broadcaster.subscribe()
	defer gw.broadcaster.unsubscribe(ch)

	connected, _ := json.Marshal(SSEEvent{Type: "connected", Payload: gw.currentStatus()})
	// nosemgrep: go.lang.security.audit.xss.no-fprintf-to-responsewriter.no-fprintf-to-responsewriter
	fmt.Fprintf(w, "data: %s\n\n", connected)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			// nosemgrep: go.lang.security.audit.xss.no-direct-write-to-responsewriter.no-direct-write-to-responsewriter
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}

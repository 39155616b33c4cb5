package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/internal/database"
	"github.com/winter-dragon/dragonlog/internal/store"
)

// fakeChannel is the subset of a platform channel the REST fake keeps.
type fakeChannel struct {
	ID         string `json:"id"`
	GuildID    string `json:"guild_id"`
	Name       string `json:"name"`
	Type       int    `json:"type"`
	ParentID   string `json:"parent_id,omitempty"`
	Overwrites int    `json:"-"`
}

// fakeDiscord is an in-memory stand-in for the platform REST API.
type fakeDiscord struct {
	mu        sync.Mutex
	nextID    int
	channels  map[string]*fakeChannel
	order     []string
	bans      map[string]string
	users     map[string]string
	forbidden map[string]bool
	calls     map[string]int
}

func newFakeDiscord(t *testing.T) (*fakeDiscord, *discordgo.Session) {
	t.Helper()
	f := &fakeDiscord{
		nextID:    1000,
		channels:  map[string]*fakeChannel{},
		bans:      map[string]string{},
		users:     map[string]string{},
		forbidden: map[string]bool{},
		calls:     map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v9/guilds/{guild}/channels", f.createChannel)
	mux.HandleFunc("GET /api/v9/guilds/{guild}/channels", f.listChannels)
	mux.HandleFunc("DELETE /api/v9/channels/{id}", f.deleteChannel)
	mux.HandleFunc("PUT /api/v9/guilds/{guild}/bans/{user}", f.ban)
	mux.HandleFunc("GET /api/v9/users/{id}", f.user)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	s, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatalf("discordgo.New: %v", err)
	}
	s.Client = &http.Client{Transport: redirectTransport{target: target}}
	s.MaxRestRetries = 0
	return f, s
}

// redirectTransport sends every request to target, keeping path and query.
type redirectTransport struct {
	target *url.URL
}

func (rt redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, map[string]any{"code": code, "message": msg})
}

func (f *fakeDiscord) count(key string) {
	f.calls[key]++
}

func (f *fakeDiscord) createChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string            `json:"name"`
		Type       int               `json:"type"`
		ParentID   string            `json:"parent_id"`
		Overwrites []json.RawMessage `json:"permission_overwrites"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, 50035, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("create")
	f.nextID++
	ch := &fakeChannel{
		ID:         fmt.Sprint(f.nextID),
		GuildID:    r.PathValue("guild"),
		Name:       body.Name,
		Type:       body.Type,
		ParentID:   body.ParentID,
		Overwrites: len(body.Overwrites),
	}
	f.channels[ch.ID] = ch
	f.order = append(f.order, ch.ID)
	writeJSON(w, http.StatusCreated, ch)
}

func (f *fakeDiscord) listChannels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("list")
	out := []*fakeChannel{}
	for _, id := range f.order {
		if ch, ok := f.channels[id]; ok && ch.GuildID == r.PathValue("guild") {
			out = append(out, ch)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeDiscord) deleteChannel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("delete")
	id := r.PathValue("id")
	if f.forbidden[id] {
		writeAPIError(w, http.StatusForbidden, 50013, "Missing Permissions")
		return
	}
	ch, ok := f.channels[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, 10003, "Unknown Channel")
		return
	}
	delete(f.channels, id)
	writeJSON(w, http.StatusOK, ch)
}

func (f *fakeDiscord) ban(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("ban")
	user := r.PathValue("user")
	if f.forbidden[user] {
		writeAPIError(w, http.StatusForbidden, 50013, "Missing Permissions")
		return
	}
	f.bans[r.PathValue("guild")+"/"+user] = r.URL.Query().Get("reason")
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeDiscord) user(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("user")
	id := r.PathValue("id")
	name, ok := f.users[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, 10013, "Unknown User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "username": name})
}

// children lists the channels whose parent is parentID, in creation order.
func (f *fakeDiscord) children(parentID string) []*fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeChannel
	for _, id := range f.order {
		if ch, ok := f.channels[id]; ok && ch.ParentID == parentID {
			out = append(out, ch)
		}
	}
	return out
}

// categories lists the live category channels, in creation order.
func (f *fakeDiscord) categories() []*fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeChannel
	for _, id := range f.order {
		if ch, ok := f.channels[id]; ok && ch.Type == int(discordgo.ChannelTypeGuildCategory) {
			out = append(out, ch)
		}
	}
	return out
}

func (f *fakeDiscord) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, id)
}

func (f *fakeDiscord) calledN(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newTestChannelStore(t *testing.T) *store.SQL {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "discord.db")})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store.New(db)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

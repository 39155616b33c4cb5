package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/notify"
)

type staticDirectory struct {
	users    map[string]audit.User
	channels map[string]audit.Channel
	roles    map[string]audit.Role
}

func (d staticDirectory) User(_ context.Context, _, id string) *audit.User {
	if u, ok := d.users[id]; ok {
		return &u
	}
	return &audit.User{ID: id}
}

func (d staticDirectory) Channel(_ context.Context, id string) *audit.Channel {
	if c, ok := d.channels[id]; ok {
		return &c
	}
	return &audit.Channel{ID: id, Kind: audit.ChannelUnknown}
}

func (d staticDirectory) Role(_ context.Context, _, id string) *audit.Role {
	if r, ok := d.roles[id]; ok {
		return &r
	}
	return &audit.Role{ID: id}
}

var testDir = staticDirectory{
	users: map[string]audit.User{
		"100": {ID: "100", Name: "mod"},
		"200": {ID: "200", Name: "member"},
	},
	channels: map[string]audit.Channel{
		"300": {ID: "300", Name: "general", Kind: audit.ChannelText},
	},
	roles: map[string]audit.Role{
		"400": {ID: "400", Name: "Helpers"},
	},
}

func convertJSON(t *testing.T, data string) *audit.Entry {
	t.Helper()
	raw, err := ParseRawEntry([]byte(data))
	if err != nil {
		t.Fatalf("ParseRawEntry: %v", err)
	}
	return Convert(context.Background(), testDir, raw)
}

func TestParseRawEntryRequiresID(t *testing.T) {
	if _, err := ParseRawEntry([]byte(`{"action_type": 1}`)); err == nil {
		t.Fatal("expected an error for an entry without id")
	}
	if _, err := ParseRawEntry([]byte(`{`)); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestConvertChannelUpdate(t *testing.T) {
	e := convertJSON(t, `{
		"guild_id": "1",
		"id": "175928847299117063",
		"user_id": "100",
		"target_id": "300",
		"action_type": 11,
		"reason": "tidy up",
		"changes": [
			{"key": "rate_limit_per_user", "old_value": 0, "new_value": 10},
			{"key": "nsfw", "old_value": false, "new_value": true}
		]
	}`)

	if e.Action != audit.ChannelUpdate || e.GuildID != "1" || e.Reason != "tidy up" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if want := time.UnixMilli(1462015105796).UTC(); !e.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", e.CreatedAt, want)
	}
	if d := cmp.Diff(&audit.User{ID: "100", Name: "mod"}, e.Actor); d != "" {
		t.Fatalf("actor mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff(&audit.Channel{ID: "300", Name: "general", Kind: audit.ChannelText}, e.Target); d != "" {
		t.Fatalf("target mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff(audit.ChannelState{}, e.Before); d != "" {
		t.Fatalf("before mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff(audit.ChannelState{SlowmodeDelay: 10, NSFW: true}, e.After); d != "" {
		t.Fatalf("after mismatch (-want +got):\n%s", d)
	}
}

func TestConvertChannelCreateUsesChangesForUnknownChannel(t *testing.T) {
	e := convertJSON(t, `{
		"guild_id": "1", "id": "2", "user_id": "100", "target_id": "301", "action_type": 10,
		"changes": [
			{"key": "name", "new_value": "voice-chat"},
			{"key": "type", "new_value": 2}
		]
	}`)
	ch, ok := e.Target.(*audit.Channel)
	if !ok || ch.Name != "voice-chat" || ch.Kind != audit.ChannelVoice {
		t.Fatalf("unexpected target %+v", e.Target)
	}
	if e.Before != nil {
		t.Fatalf("create must not carry a before state, got %+v", e.Before)
	}
	if after := e.After.(audit.ChannelState); after.Name != "voice-chat" || after.Type != 2 {
		t.Fatalf("unexpected after %+v", after)
	}
}

func TestConvertMemberUpdate(t *testing.T) {
	e := convertJSON(t, `{
		"guild_id": "1", "id": "3", "user_id": "100", "target_id": "200", "action_type": 24,
		"changes": [{"key": "nick", "old_value": "old", "new_value": "new"}]
	}`)
	n, err := mustRegistry(t).Classify(e)[0].Bind(e, nil).Notification()
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	want := []audit.Change{{Name: "Nick", Before: "old", After: "new"}}
	if d := cmp.Diff(want, n.Changes); d != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", d)
	}
}

func TestConvertMemberRoleUpdate(t *testing.T) {
	e := convertJSON(t, `{
		"guild_id": "1", "id": "4", "user_id": "100", "target_id": "200", "action_type": 25,
		"changes": [
			{"key": "$add", "new_value": [{"id": "400", "name": "Helpers"}]},
			{"key": "$remove", "new_value": [{"id": "401", "name": "Muted"}]}
		]
	}`)
	want := audit.MemberRolesExtra{
		Added:   []audit.Role{{ID: "400", Name: "Helpers"}},
		Removed: []audit.Role{{ID: "401", Name: "Muted"}},
	}
	if d := cmp.Diff(want, e.Extra); d != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", d)
	}
}

func TestConvertOverwriteOptions(t *testing.T) {
	role := convertJSON(t, `{
		"guild_id": "1", "id": "5", "user_id": "100", "target_id": "300", "action_type": 13,
		"options": {"id": "400", "type": "0", "role_name": "Helpers"},
		"changes": [{"key": "allow", "new_value": "1024"}]
	}`)
	ow, ok := role.Extra.(audit.OverwriteExtra)
	if !ok || ow.Role == nil || ow.Role.Name != "Helpers" || ow.Member != nil {
		t.Fatalf("unexpected role overwrite extra %+v", role.Extra)
	}
	if after := role.After.(audit.OverwriteState); after.Allow != "1024" {
		t.Fatalf("unexpected after %+v", after)
	}

	member := convertJSON(t, `{
		"guild_id": "1", "id": "6", "user_id": "100", "target_id": "300", "action_type": 15,
		"options": {"id": "200", "type": "1"}
	}`)
	ow = member.Extra.(audit.OverwriteExtra)
	if ow.Member == nil || ow.Member.Name != "member" {
		t.Fatalf("unexpected member overwrite extra %+v", ow)
	}
}

func TestConvertPruneWithoutStats(t *testing.T) {
	e := convertJSON(t, `{"guild_id": "1", "id": "7", "user_id": "100", "action_type": 21}`)
	if d := cmp.Diff(audit.PruneExtra{DeleteMemberDays: -1, MembersRemoved: -1}, e.Extra); d != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", d)
	}
	e = convertJSON(t, `{"guild_id": "1", "id": "8", "user_id": "100", "action_type": 21,
		"options": {"delete_member_days": "7", "members_removed": "12"}}`)
	if d := cmp.Diff(audit.PruneExtra{DeleteMemberDays: 7, MembersRemoved: 12}, e.Extra); d != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", d)
	}
}

func TestConvertMessageDelete(t *testing.T) {
	e := convertJSON(t, `{
		"guild_id": "1", "id": "9", "user_id": "100", "target_id": "200", "action_type": 72,
		"options": {"channel_id": "300", "count": "3"}
	}`)
	md, ok := e.Extra.(audit.MessageDeleteExtra)
	if !ok || md.Count != 3 || md.Channel.Name != "general" {
		t.Fatalf("unexpected extra %+v", e.Extra)
	}
	if u, ok := e.Target.(*audit.User); !ok || u.ID != "200" {
		t.Fatalf("unexpected target %+v", e.Target)
	}
}

func TestConvertMissingTargetLeavesNilTarget(t *testing.T) {
	e := convertJSON(t, `{"guild_id": "1", "id": "10", "user_id": "100", "action_type": 20}`)
	if e.Target != nil {
		t.Fatalf("expected nil target, got %#v", e.Target)
	}
	_, err := mustRegistry(t).Classify(e)[0].Bind(e, nil).Notification()
	if err == nil {
		t.Fatal("kick without target must be a shape mismatch")
	}
}

func TestConvertUnknownAction(t *testing.T) {
	e := convertJSON(t, `{"guild_id": "1", "id": "11", "user_id": "100", "target_id": "5", "action_type": 9999}`)
	if len(mustRegistry(t).Classify(e)) != 0 {
		t.Fatalf("unknown action %q must not classify", e.Action)
	}
	if u, ok := e.Target.(*audit.Unknown); !ok || u.ID != "5" {
		t.Fatalf("unexpected target %+v", e.Target)
	}
}

func TestRawEntriesFromREST(t *testing.T) {
	kick := discordgo.AuditLogActionMemberKick
	ban := discordgo.AuditLogActionMemberBanAdd
	entries := []*discordgo.AuditLogEntry{
		{ID: "20", UserID: "100", TargetID: "200", ActionType: &ban, Reason: "spam"},
		{ID: "19", UserID: "100", TargetID: "200", ActionType: &kick},
	}
	raws, err := rawEntries("1", entries)
	if err != nil {
		t.Fatalf("rawEntries: %v", err)
	}
	if len(raws) != 2 || raws[0].ID != "19" || raws[1].ID != "20" {
		t.Fatalf("expected chronological order, got %+v", raws)
	}
	if raws[1].GuildID != "1" || raws[1].ActionType != 22 || raws[1].Reason != "spam" {
		t.Fatalf("unexpected raw entry %+v", raws[1])
	}
}

func TestEditEntry(t *testing.T) {
	channel := func(id string) audit.Channel { return audit.Channel{ID: id, Name: "general"} }
	edited := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	update := &discordgo.MessageUpdate{
		Message: &discordgo.Message{
			ID: "50", ChannelID: "300", GuildID: "1", Content: "after",
			Author:          &discordgo.User{ID: "200", Username: "member"},
			EditedTimestamp: &edited,
		},
		BeforeUpdate: &discordgo.Message{ID: "50", Content: "before"},
	}

	e := editEntry(update, channel)
	if e == nil {
		t.Fatal("expected an entry")
	}
	if e.Action != audit.MessageEdit || !e.CreatedAt.Equal(edited) {
		t.Fatalf("unexpected entry %+v", e)
	}
	if d := cmp.Diff(audit.MessageEditState{Content: "before"}, e.Before); d != "" {
		t.Fatalf("before mismatch (-want +got):\n%s", d)
	}

	update.BeforeUpdate.Content = "after"
	if editEntry(update, channel) != nil {
		t.Fatal("unchanged content must be ignored")
	}
	update.BeforeUpdate = nil
	if editEntry(update, channel) != nil {
		t.Fatal("uncached message must be ignored")
	}
}

func TestEmbed(t *testing.T) {
	m := notify.Message{
		Title:       "Ban",
		Description: "d",
		Color:       notify.ColorDeleted,
		Fields:      []notify.Field{{Name: "Nick", Value: "v"}},
		Footer:      "Entry 1",
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	want := &discordgo.MessageEmbed{
		Title:       "Ban",
		Description: "d",
		Color:       notify.ColorDeleted,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Nick", Value: "v"}},
		Footer:      &discordgo.MessageEmbedFooter{Text: "Entry 1"},
		Timestamp:   "2024-01-02T03:04:05Z",
	}
	if d := cmp.Diff(want, Embed(m)); d != "" {
		t.Fatalf("embed mismatch (-want +got):\n%s", d)
	}
}

func mustRegistry(t *testing.T) *audit.Registry {
	t.Helper()
	reg, err := audit.NewRegistry(nil, audit.DefaultHandlers())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

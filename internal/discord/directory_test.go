package discord

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestSessionDirectoryUserPrefersState(t *testing.T) {
	fake, s := newFakeDiscord(t)
	fake.users["201"] = "departed"
	if err := s.State.GuildAdd(&discordgo.Guild{ID: "1"}); err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}
	if err := s.State.MemberAdd(&discordgo.Member{GuildID: "1", User: &discordgo.User{ID: "200", Username: "cached"}}); err != nil {
		t.Fatalf("MemberAdd: %v", err)
	}
	dir := NewSessionDirectory(s, discardLogger())
	ctx := context.Background()

	if u := dir.User(ctx, "1", "200"); u.Name != "cached" {
		t.Fatalf("cached member = %+v", u)
	}
	if n := fake.calledN("user"); n != 0 {
		t.Fatalf("cached member cost %d REST calls", n)
	}

	if u := dir.User(ctx, "1", "201"); u.Name != "departed" {
		t.Fatalf("REST fallback = %+v", u)
	}
	if u := dir.User(ctx, "1", "202"); u.ID != "202" || u.Name != "" {
		t.Fatalf("unknown user = %+v, want ID only", u)
	}
	if n := fake.calledN("user"); n != 2 {
		t.Fatalf("REST calls = %d, want 2", n)
	}
}

package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/winter-dragon/dragonlog/internal/config"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(config.DiscordConfig{}, nil); !errors.Is(err, ErrNoToken) {
		t.Fatalf("New without token = %v, want ErrNoToken", err)
	}
}

func TestNewIdentifiesWithAuditIntents(t *testing.T) {
	b, err := New(config.DiscordConfig{Token: "x", Guilds: []string{"1"}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := b.Session().Identify.Intents
	for _, want := range []discordgo.Intent{
		discordgo.IntentsGuilds,
		discordgo.IntentsGuildMembers,
		discordgo.IntentsGuildBans,
		discordgo.IntentsMessageContent,
	} {
		if got&want == 0 {
			t.Errorf("intents %b missing %b", got, want)
		}
	}
	if !b.Watches("1") || b.Watches("2") {
		t.Fatal("Watches should only accept configured guilds")
	}
}

package cmd

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/winter-dragon/dragonlog/internal/config"
)

func sampleConfig() *config.Config {
	return &config.Config{
		Discord:  config.DiscordConfig{Token: "t", Guilds: []string{"1", "2"}, LogCategory: "Logs"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: "/tmp/dragonlog.db"},
		Pipeline: config.PipelineConfig{Workers: 4, EntryTimeout: 30 * time.Second, RecordEntries: true},
		Notify: config.NotifyConfig{
			Email:   config.EmailNotifyConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "a@example.com", To: "b@example.com"},
			NATS:    config.NATSNotifyConfig{URL: "nats://127.0.0.1:4222", Subject: "dragonlog.audit"},
			Actions: []string{"ban", "kick"},
		},
		Gateway:   config.GatewayConfig{Port: 6090, StaleAfter: 30 * time.Minute},
		Retention: config.RetentionConfig{Schedule: "0 4 * * *", MaxAge: 90 * 24 * time.Hour},
	}
}

func TestConfigSectionsRoundTrip(t *testing.T) {
	for _, section := range configSections {
		t.Run(section.key, func(t *testing.T) {
			cfg := sampleConfig()
			want := sampleConfig()
			form, apply := section.build(cfg)
			if form == nil {
				t.Fatal("section built no form")
			}
			if err := apply(); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if d := cmp.Diff(want, cfg); d != "" {
				t.Fatalf("unedited form changed the config (-want +got):\n%s", d)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestFindSection(t *testing.T) {
	for _, key := range []string{"discord", "database", "pipeline", "notify", "gateway"} {
		if _, err := findSection(key); err != nil {
			t.Errorf("findSection(%q): %v", key, err)
		}
	}
	if _, err := findSection("ai"); err == nil {
		t.Fatal("expected an unknown section error")
	}
}

func TestParseCommaList(t *testing.T) {
	got := parseCommaList(" 1, ,2 ,3,")
	if d := cmp.Diff([]string{"1", "2", "3"}, got); d != "" {
		t.Fatalf("parseCommaList (-want +got):\n%s", d)
	}
	if parseCommaList("  ") != nil {
		t.Fatal("blank input should yield nil")
	}
}

func TestFieldValidators(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) error
		in    string
		ok    bool
	}{
		{"int", validateInt, "8", true},
		{"int rejects text", validateInt, "eight", false},
		{"duration", validateDuration, "45s", true},
		{"duration rejects bare number", validateDuration, "45", false},
		{"cron", validateCron, "0 4 * * *", true},
		{"cron empty disables", validateCron, "", true},
		{"cron rejects garbage", validateCron, "every day", false},
		{"ids", validateIDList, "123, 456", true},
		{"ids reject names", validateIDList, "123,dragons", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.check(tt.in); (err == nil) != tt.ok {
				t.Fatalf("validator(%q) = %v, want ok=%v", tt.in, err, tt.ok)
			}
		})
	}
}

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/config"
)

var configSectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1).MarginBottom(1)

var configUICmd = &cobra.Command{
	Use:   "ui",
	Short: "Interactive configuration editor",
	Long: `Launches an interactive form to edit dragonlog settings one section at a
time. Changes are validated before they are saved.

Sections:
  - Discord: bot token, watched guilds, log category name
  - Database: SQLite path, MySQL DSN
  - Pipeline: workers, entry timeout, audit log recording
  - Notify: Slack, Telegram, Email, webhook and NATS mirrors
  - Gateway: control plane port, staleness, retention schedule
`,
	RunE: runConfigUI,
}

// configSection is one editable group of settings. form binds the current
// values; apply parses them back into the config.
type configSection struct {
	key   string
	title string
	build func(cfg *config.Config) (form *huh.Form, apply func() error)
}

var configSections = []configSection{
	{"discord", "Discord", discordSection},
	{"database", "Database", databaseSection},
	{"pipeline", "Pipeline", pipelineSection},
	{"notify", "Notifications", notifySection},
	{"gateway", "Gateway & Retention", gatewaySection},
}

func runConfigUI(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("  dragonlog configuration"))

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	options := make([]huh.Option[string], 0, len(configSections))
	for _, s := range configSections {
		options = append(options, huh.NewOption(s.title, s.key))
	}
	selected := configSections[0].key
	picker := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Configuration section").
			Options(options...).
			Value(&selected),
	))
	if err := picker.Run(); err != nil {
		return err
	}
	return runSectionEditor(cfg, selected)
}

func findSection(key string) (configSection, error) {
	for _, s := range configSections {
		if s.key == key {
			return s, nil
		}
	}
	return configSection{}, fmt.Errorf("unknown section: %s", key)
}

func runSectionEditor(cfg *config.Config, key string) error {
	section, err := findSection(key)
	if err != nil {
		return err
	}
	fmt.Println(configSectionStyle.Render("  " + section.title))

	form, apply := section.build(cfg)
	if err := form.Run(); err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	save := true
	confirm := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Save changes?").
			Value(&save),
	))
	if err := confirm.Run(); err != nil {
		return err
	}
	if !save {
		fmt.Println(dimStyle.Render("  Discarded."))
		return nil
	}

	p, err := config.ConfigPath(cfgFile)
	if err != nil {
		return fmt.Errorf("getting config path: %w", err)
	}
	if err := config.Save(cfg, p); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println(successStyle.Render("  ✓ Configuration saved to " + p))
	return nil
}

func discordSection(cfg *config.Config) (*huh.Form, func() error) {
	token := cfg.Discord.Token
	guilds := strings.Join(cfg.Discord.Guilds, ",")
	category := cfg.Discord.LogCategory

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Bot token").
			Description("Without the \"Bot \" prefix").
			EchoMode(huh.EchoModePassword).
			Value(&token),
		huh.NewInput().
			Title("Guilds").
			Description("Comma-separated guild IDs; empty watches every guild").
			Validate(validateIDList).
			Value(&guilds),
		huh.NewInput().
			Title("Log category").
			Placeholder("Logs").
			Value(&category),
	))
	return form, func() error {
		cfg.Discord.Token = strings.TrimSpace(token)
		cfg.Discord.Guilds = parseCommaList(guilds)
		cfg.Discord.LogCategory = strings.TrimSpace(category)
		return nil
	}
}

func databaseSection(cfg *config.Config) (*huh.Form, func() error) {
	driver := cfg.Database.Driver
	if driver == "" {
		driver = "sqlite"
	}
	path := cfg.Database.Path
	dsn := cfg.Database.DSN

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Driver").
			Options(
				huh.NewOption("SQLite", "sqlite"),
				huh.NewOption("MySQL", "mysql"),
			).
			Value(&driver),
		huh.NewInput().
			Title("SQLite path").
			Placeholder("~/"+config.DefaultDBFile).
			Value(&path),
		huh.NewInput().
			Title("MySQL DSN").
			Placeholder("user:pass@tcp(host:3306)/dragonlog").
			EchoMode(huh.EchoModePassword).
			Value(&dsn),
	))
	return form, func() error {
		cfg.Database.Driver = driver
		cfg.Database.Path = strings.TrimSpace(path)
		cfg.Database.DSN = strings.TrimSpace(dsn)
		return nil
	}
}

func pipelineSection(cfg *config.Config) (*huh.Form, func() error) {
	workers := strconv.Itoa(cfg.Pipeline.Workers)
	timeout := cfg.Pipeline.EntryTimeout.String()
	record := cfg.Pipeline.RecordEntries

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Workers").
			Description("Entries processed at the same time (1-64)").
			Validate(validateInt).
			Value(&workers),
		huh.NewInput().
			Title("Entry timeout").
			Description("Go duration, e.g. 30s").
			Validate(validateDuration).
			Value(&timeout),
		huh.NewConfirm().
			Title("Record entries").
			Description("Store every classified entry in audit_logs").
			Value(&record),
	))
	return form, func() error {
		var err error
		if cfg.Pipeline.Workers, err = parseInt("workers", workers); err != nil {
			return err
		}
		if cfg.Pipeline.EntryTimeout, err = parseDuration("entry timeout", timeout); err != nil {
			return err
		}
		cfg.Pipeline.RecordEntries = record
		return nil
	}
}

func notifySection(cfg *config.Config) (*huh.Form, func() error) {
	n := cfg.Notify
	slackURL := n.Slack.WebhookURL
	tgToken, tgChat := n.Telegram.BotToken, n.Telegram.ChatID
	smtpHost := n.Email.SMTPHost
	smtpPort := strconv.Itoa(n.Email.SMTPPort)
	emailUser, emailPass := n.Email.Username, n.Email.Password
	emailFrom, emailTo := n.Email.From, n.Email.To
	useTLS := n.Email.UseTLS
	hookURL, hookSecret := n.Webhook.URL, n.Webhook.Secret
	natsURL, natsSubject := n.NATS.URL, n.NATS.Subject
	actions := strings.Join(n.Actions, ",")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Slack webhook URL").Placeholder("https://hooks.slack.com/...").Value(&slackURL),
			huh.NewInput().Title("Telegram bot token").EchoMode(huh.EchoModePassword).Value(&tgToken),
			huh.NewInput().Title("Telegram chat ID").Value(&tgChat),
			huh.NewInput().Title("Webhook URL").Placeholder("https://example.com/dragonlog").Value(&hookURL),
			huh.NewInput().Title("Webhook secret").Description("HMAC-SHA256 signing key").EchoMode(huh.EchoModePassword).Value(&hookSecret),
			huh.NewInput().Title("NATS URL").Placeholder("nats://127.0.0.1:4222").Value(&natsURL),
			huh.NewInput().Title("NATS subject prefix").Placeholder("dragonlog.audit").Value(&natsSubject),
		).Title("Mirrors"),
		huh.NewGroup(
			huh.NewInput().Title("SMTP host").Placeholder("smtp.example.com").Value(&smtpHost),
			huh.NewInput().Title("SMTP port").Placeholder("587").Validate(validateInt).Value(&smtpPort),
			huh.NewInput().Title("Username").Value(&emailUser),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&emailPass),
			huh.NewInput().Title("From").Value(&emailFrom),
			huh.NewInput().Title("To").Value(&emailTo),
			huh.NewConfirm().Title("Use TLS").Value(&useTLS),
		).Title("Email"),
		huh.NewGroup(
			huh.NewInput().
				Title("Actions").
				Description("Comma-separated action names to mirror; empty mirrors all").
				Placeholder("ban,kick,member_prune").
				Value(&actions),
		),
	)
	return form, func() error {
		port, err := parseInt("SMTP port", smtpPort)
		if err != nil {
			return err
		}
		cfg.Notify.Slack.WebhookURL = strings.TrimSpace(slackURL)
		cfg.Notify.Telegram.BotToken = strings.TrimSpace(tgToken)
		cfg.Notify.Telegram.ChatID = strings.TrimSpace(tgChat)
		cfg.Notify.Email.SMTPHost = strings.TrimSpace(smtpHost)
		cfg.Notify.Email.SMTPPort = port
		cfg.Notify.Email.Username = strings.TrimSpace(emailUser)
		cfg.Notify.Email.Password = strings.TrimSpace(emailPass)
		cfg.Notify.Email.From = strings.TrimSpace(emailFrom)
		cfg.Notify.Email.To = strings.TrimSpace(emailTo)
		cfg.Notify.Email.UseTLS = useTLS
		cfg.Notify.Webhook.URL = strings.TrimSpace(hookURL)
		cfg.Notify.Webhook.Secret = strings.TrimSpace(hookSecret)
		cfg.Notify.NATS.URL = strings.TrimSpace(natsURL)
		cfg.Notify.NATS.Subject = strings.TrimSpace(natsSubject)
		cfg.Notify.Actions = parseCommaList(strings.ToLower(actions))
		return nil
	}
}

func gatewaySection(cfg *config.Config) (*huh.Form, func() error) {
	port := strconv.Itoa(cfg.Gateway.Port)
	stale := cfg.Gateway.StaleAfter.String()
	schedule := cfg.Retention.Schedule
	maxAge := cfg.Retention.MaxAge.String()

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Port").
			Description("Localhost port of the control plane (default: 6090)").
			Validate(validateInt).
			Value(&port),
		huh.NewInput().
			Title("Stale after").
			Description("Report the pipeline stale after this long without entries").
			Validate(validateDuration).
			Value(&stale),
		huh.NewInput().
			Title("Retention schedule").
			Description("Cron expression; empty disables pruning").
			Placeholder("0 4 * * *").
			Validate(validateCron).
			Value(&schedule),
		huh.NewInput().
			Title("Retention max age").
			Description("Go duration, e.g. 2160h").
			Validate(validateDuration).
			Value(&maxAge),
	))
	return form, func() error {
		var err error
		if cfg.Gateway.Port, err = parseInt("port", port); err != nil {
			return err
		}
		if cfg.Gateway.StaleAfter, err = parseDuration("stale after", stale); err != nil {
			return err
		}
		if err := validateCron(schedule); err != nil {
			return err
		}
		cfg.Retention.Schedule = strings.TrimSpace(schedule)
		if cfg.Retention.MaxAge, err = parseDuration("retention max age", maxAge); err != nil {
			return err
		}
		return nil
	}
}

func parseCommaList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", name, s)
	}
	return n, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// --- field validators ---

func validateInt(s string) error {
	_, err := parseInt("value", s)
	return err
}

func validateDuration(s string) error {
	_, err := parseDuration("value", s)
	return err
}

func validateCron(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

func validateIDList(s string) error {
	for _, id := range parseCommaList(s) {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return errors.New("guild IDs are numeric: " + id)
		}
	}
	return nil
}

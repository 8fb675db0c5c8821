package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Values holds raw scalar configuration values as parsed from a single source.
// Fields ending in *Set track whether that field was explicitly present, which
// lets a local config override the global one with false/zero values.
type Values struct {
	BaseURL     string
	Browser     string
	Headless    bool
	HeadlessSet bool

	TimeoutExplicitMs    int
	TimeoutExplicitMsSet bool
	TimeoutPageLoadMs    int
	TimeoutPageLoadMsSet bool
	TimeoutPollMs        int
	TimeoutPollMsSet     bool

	WindowWidth     int
	WindowWidthSet  bool
	WindowHeight    int
	WindowHeightSet bool

	Username string
	Password string

	ScreenshotDir string
	ReportDir     string
	Workers       int
	WorkersSet    bool

	NotifyChannels      []string
	NotifyOnError       bool
	NotifyOnErrorSet    bool
	NotifyOnComplete    bool
	NotifyOnCompleteSet bool
	NotifyTimeoutMs     int
	NotifyTimeoutMsSet  bool
	NotifyTelegramToken string
	NotifyTelegramChat  string
	NotifySlackToken    string
	NotifySlackChannel  string
	NotifySMTPHost      string
	NotifySMTPPort      int
	NotifySMTPPortSet   bool
	NotifySMTPUsername  string
	NotifySMTPPassword  string
	NotifySMTPStartTLS  bool
	NotifyEmailFrom     string
	NotifyEmailTo       []string
	NotifyWebhookURLs   []string
	NotifyCustomScript  string
}

// valuesLoader parses Values from config files with embedded fallback.
type valuesLoader struct {
	embedFS embed.FS
}

func newValuesLoader(embedFS embed.FS) *valuesLoader {
	return &valuesLoader{embedFS: embedFS}
}

// Load loads values with fallback chain: local → global → embedded.
// localPath and globalPath are full paths to config files, not directories.
func (vl *valuesLoader) Load(localPath, globalPath string) (Values, error) {
	embedded, err := vl.parseFromEmbedded()
	if err != nil {
		return Values{}, fmt.Errorf("parse embedded defaults: %w", err)
	}

	global, err := vl.parseFromFile(globalPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse global config: %w", err)
	}

	local, err := vl.parseFromFile(localPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse local config: %w", err)
	}

	// merge: embedded → global → local (local wins)
	result := embedded
	result.mergeFrom(&global)
	result.mergeFrom(&local)

	return result, nil
}

// parseFromFile reads a config file into Values. A missing file or a file
// containing only comments yields empty Values so the embedded defaults apply.
func (vl *valuesLoader) parseFromFile(path string) (Values, error) {
	if path == "" {
		return Values{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from fixed locations
	if err != nil {
		if os.IsNotExist(err) {
			return Values{}, nil
		}
		return Values{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.TrimSpace(stripComments(string(data))) == "" {
		return Values{}, nil
	}

	return vl.parseFromBytes(data)
}

func (vl *valuesLoader) parseFromEmbedded() (Values, error) {
	data, err := vl.embedFS.ReadFile("defaults/config")
	if err != nil {
		return Values{}, fmt.Errorf("read embedded defaults: %w", err)
	}
	return vl.parseFromBytes(data)
}

// parseFromBytes parses INI configuration into Values.
//
//nolint:gocyclo // flat key-by-key extraction; splitting would hurt readability
func (vl *valuesLoader) parseFromBytes(data []byte) (Values, error) {
	// ignoreInlineComment: true prevents # inside values (e.g. URLs) from being cut
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return Values{}, fmt.Errorf("parse config: %w", err)
	}

	var values Values
	section := cfg.Section("") // flat keys, no section headers

	if key, err := section.GetKey("base_url"); err == nil {
		values.BaseURL = strings.TrimRight(strings.TrimSpace(key.String()), "/")
	}
	if key, err := section.GetKey("browser"); err == nil {
		values.Browser = strings.ToLower(strings.TrimSpace(key.String()))
	}
	if key, err := section.GetKey("headless"); err == nil {
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid headless: %w", boolErr)
		}
		values.Headless = val
		values.HeadlessSet = true
	}

	// timeout tiers
	if err := parsePositiveInt(section, "timeout_explicit_ms", &values.TimeoutExplicitMs, &values.TimeoutExplicitMsSet); err != nil {
		return Values{}, err
	}
	if err := parsePositiveInt(section, "timeout_page_load_ms", &values.TimeoutPageLoadMs, &values.TimeoutPageLoadMsSet); err != nil {
		return Values{}, err
	}
	if err := parsePositiveInt(section, "timeout_poll_ms", &values.TimeoutPollMs, &values.TimeoutPollMsSet); err != nil {
		return Values{}, err
	}

	// window size
	if err := parsePositiveInt(section, "window_width", &values.WindowWidth, &values.WindowWidthSet); err != nil {
		return Values{}, err
	}
	if err := parsePositiveInt(section, "window_height", &values.WindowHeight, &values.WindowHeightSet); err != nil {
		return Values{}, err
	}

	// credentials
	if key, err := section.GetKey("username"); err == nil {
		values.Username = key.String()
	}
	if key, err := section.GetKey("password"); err == nil {
		values.Password = key.String()
	}

	// output paths
	if key, err := section.GetKey("screenshot_dir"); err == nil {
		values.ScreenshotDir = key.String()
	}
	if key, err := section.GetKey("report_dir"); err == nil {
		values.ReportDir = key.String()
	}
	if err := parsePositiveInt(section, "workers", &values.Workers, &values.WorkersSet); err != nil {
		return Values{}, err
	}

	// notification settings
	values.NotifyChannels = parseList(section, "notify_channels")
	if key, err := section.GetKey("notify_on_error"); err == nil {
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid notify_on_error: %w", boolErr)
		}
		values.NotifyOnError = val
		values.NotifyOnErrorSet = true
	}
	if key, err := section.GetKey("notify_on_complete"); err == nil {
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid notify_on_complete: %w", boolErr)
		}
		values.NotifyOnComplete = val
		values.NotifyOnCompleteSet = true
	}
	if err := parsePositiveInt(section, "notify_timeout_ms", &values.NotifyTimeoutMs, &values.NotifyTimeoutMsSet); err != nil {
		return Values{}, err
	}
	if key, err := section.GetKey("notify_telegram_token"); err == nil {
		values.NotifyTelegramToken = key.String()
	}
	if key, err := section.GetKey("notify_telegram_chat"); err == nil {
		values.NotifyTelegramChat = key.String()
	}
	if key, err := section.GetKey("notify_slack_token"); err == nil {
		values.NotifySlackToken = key.String()
	}
	if key, err := section.GetKey("notify_slack_channel"); err == nil {
		values.NotifySlackChannel = key.String()
	}
	if key, err := section.GetKey("notify_smtp_host"); err == nil {
		values.NotifySMTPHost = key.String()
	}
	if err := parsePositiveInt(section, "notify_smtp_port", &values.NotifySMTPPort, &values.NotifySMTPPortSet); err != nil {
		return Values{}, err
	}
	if key, err := section.GetKey("notify_smtp_username"); err == nil {
		values.NotifySMTPUsername = key.String()
	}
	if key, err := section.GetKey("notify_smtp_password"); err == nil {
		values.NotifySMTPPassword = key.String()
	}
	if key, err := section.GetKey("notify_smtp_starttls"); err == nil {
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid notify_smtp_starttls: %w", boolErr)
		}
		values.NotifySMTPStartTLS = val
	}
	if key, err := section.GetKey("notify_email_from"); err == nil {
		values.NotifyEmailFrom = key.String()
	}
	values.NotifyEmailTo = parseList(section, "notify_email_to")
	values.NotifyWebhookURLs = parseList(section, "notify_webhook_urls")
	if key, err := section.GetKey("notify_custom_script"); err == nil {
		values.NotifyCustomScript = key.String()
	}

	return values, nil
}

// parsePositiveInt extracts a non-negative int key into dst and marks set.
func parsePositiveInt(section *ini.Section, name string, dst *int, set *bool) error {
	key, err := section.GetKey(name)
	if err != nil {
		return nil //nolint:nilerr // missing key means "not set", not an error
	}
	val, err := key.Int()
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if val < 0 {
		return fmt.Errorf("invalid %s: must be non-negative, got %d", name, val)
	}
	*dst = val
	*set = true
	return nil
}

// parseList extracts a comma-separated list key.
func parseList(section *ini.Section, name string) []string {
	key, err := section.GetKey(name)
	if err != nil {
		return nil
	}
	var out []string
	for p := range strings.SplitSeq(key.String(), ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// stripComments removes full-line comments (# or ;) for the emptiness check.
func stripComments(s string) string {
	var b strings.Builder
	for line := range strings.SplitSeq(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// mergeFrom merges explicitly set values from src into dst.
func (dst *Values) mergeFrom(src *Values) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Browser != "" {
		dst.Browser = src.Browser
	}
	if src.HeadlessSet {
		dst.Headless = src.Headless
		dst.HeadlessSet = true
	}
	if src.TimeoutExplicitMsSet {
		dst.TimeoutExplicitMs = src.TimeoutExplicitMs
		dst.TimeoutExplicitMsSet = true
	}
	if src.TimeoutPageLoadMsSet {
		dst.TimeoutPageLoadMs = src.TimeoutPageLoadMs
		dst.TimeoutPageLoadMsSet = true
	}
	if src.TimeoutPollMsSet {
		dst.TimeoutPollMs = src.TimeoutPollMs
		dst.TimeoutPollMsSet = true
	}
	if src.WindowWidthSet {
		dst.WindowWidth = src.WindowWidth
		dst.WindowWidthSet = true
	}
	if src.WindowHeightSet {
		dst.WindowHeight = src.WindowHeight
		dst.WindowHeightSet = true
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.ScreenshotDir != "" {
		dst.ScreenshotDir = src.ScreenshotDir
	}
	if src.ReportDir != "" {
		dst.ReportDir = src.ReportDir
	}
	if src.WorkersSet {
		dst.Workers = src.Workers
		dst.WorkersSet = true
	}
	if len(src.NotifyChannels) > 0 {
		dst.NotifyChannels = src.NotifyChannels
	}
	if src.NotifyOnErrorSet {
		dst.NotifyOnError = src.NotifyOnError
		dst.NotifyOnErrorSet = true
	}
	if src.NotifyOnCompleteSet {
		dst.NotifyOnComplete = src.NotifyOnComplete
		dst.NotifyOnCompleteSet = true
	}
	if src.NotifyTimeoutMsSet {
		dst.NotifyTimeoutMs = src.NotifyTimeoutMs
		dst.NotifyTimeoutMsSet = true
	}
	if src.NotifyTelegramToken != "" {
		dst.NotifyTelegramToken = src.NotifyTelegramToken
	}
	if src.NotifyTelegramChat != "" {
		dst.NotifyTelegramChat = src.NotifyTelegramChat
	}
	if src.NotifySlackToken != "" {
		dst.NotifySlackToken = src.NotifySlackToken
	}
	if src.NotifySlackChannel != "" {
		dst.NotifySlackChannel = src.NotifySlackChannel
	}
	if src.NotifySMTPHost != "" {
		dst.NotifySMTPHost = src.NotifySMTPHost
	}
	if src.NotifySMTPPortSet {
		dst.NotifySMTPPort = src.NotifySMTPPort
		dst.NotifySMTPPortSet = true
	}
	if src.NotifySMTPUsername != "" {
		dst.NotifySMTPUsername = src.NotifySMTPUsername
	}
	if src.NotifySMTPPassword != "" {
		dst.NotifySMTPPassword = src.NotifySMTPPassword
	}
	if src.NotifySMTPStartTLS {
		dst.NotifySMTPStartTLS = true
	}
	if src.NotifyEmailFrom != "" {
		dst.NotifyEmailFrom = src.NotifyEmailFrom
	}
	if len(src.NotifyEmailTo) > 0 {
		dst.NotifyEmailTo = src.NotifyEmailTo
	}
	if len(src.NotifyWebhookURLs) > 0 {
		dst.NotifyWebhookURLs = src.NotifyWebhookURLs
	}
	if src.NotifyCustomScript != "" {
		dst.NotifyCustomScript = src.NotifyCustomScript
	}
}

// toConfig converts merged values into the immutable Config.
func (v Values) toConfig() *Config {
	return &Config{
		BaseURL:           v.BaseURL,
		Browser:           v.Browser,
		Headless:          v.Headless,
		TimeoutExplicitMs: v.TimeoutExplicitMs,
		TimeoutPageLoadMs: v.TimeoutPageLoadMs,
		TimeoutPollMs:     v.TimeoutPollMs,
		WindowWidth:       v.WindowWidth,
		WindowHeight:      v.WindowHeight,
		Username:          v.Username,
		Password:          v.Password,
		ScreenshotDir:     v.ScreenshotDir,
		ReportDir:         v.ReportDir,
		Workers:           v.Workers,
		Notify: NotifySettings{
			Channels:      v.NotifyChannels,
			OnError:       v.NotifyOnError,
			OnComplete:    v.NotifyOnComplete,
			TimeoutMs:     v.NotifyTimeoutMs,
			TelegramToken: v.NotifyTelegramToken,
			TelegramChat:  v.NotifyTelegramChat,
			SlackToken:    v.NotifySlackToken,
			SlackChannel:  v.NotifySlackChannel,
			SMTPHost:      v.NotifySMTPHost,
			SMTPPort:      v.NotifySMTPPort,
			SMTPUsername:  v.NotifySMTPUsername,
			SMTPPassword:  v.NotifySMTPPassword,
			SMTPStartTLS:  v.NotifySMTPStartTLS,
			EmailFrom:     v.NotifyEmailFrom,
			EmailTo:       v.NotifyEmailTo,
			WebhookURLs:   v.NotifyWebhookURLs,
			CustomScript:  v.NotifyCustomScript,
		},
	}
}

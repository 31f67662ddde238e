package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ResearchBriefing/internal/state"
)

const (
	defaultZoneName    = "JST"
	defaultZoneOffset  = 9
	configPathEnv      = "RESEARCH_BRIEFING_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	stateDSNEnv        = "STATE_DSN"
	slackTokenEnv      = "SLACK_BOT_TOKEN"
	slackChannelEnv    = "SLACK_CHANNEL_ID"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	defaultConfigFile  = "config.yml"
	exampleConfigFile  = "config.example.yml"
	defaultArxivAPIURL = "https://export.arxiv.org/api/query"
)

// Config holds high-level settings required across the application.
// It is built once at startup and passed down by value.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Timezone      TimezoneConfig     `yaml:"timezone"`
	Retention     RetentionConfig    `yaml:"retention"`
	State         StateConfig        `yaml:"state"`
	Sites         []SiteConfig       `yaml:"sites"`
	BlogFeeds     []FeedConfig       `yaml:"blogFeeds"`
	SafetyFeeds   []FeedConfig       `yaml:"safetyFeeds"`
	Keywords      []KeywordConfig    `yaml:"keywords"`
	Notifications NotificationConfig `yaml:"notifications"`
	LLM           LLMConfig          `yaml:"llm"`
	Output        OutputConfig       `yaml:"output"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Metrics       MetricsConfig      `yaml:"metrics"`

	// Source is the file the config was read from, empty for built-in defaults.
	Source string `yaml:"-"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TimezoneConfig is the fixed-offset zone used for buffer dates and briefing headers.
type TimezoneConfig struct {
	Name        string `yaml:"name"`
	OffsetHours int    `yaml:"offsetHours"`
}

// Location returns the fixed zone.
func (t TimezoneConfig) Location() *time.Location {
	name := t.Name
	if name == "" {
		name = "UTC"
		if t.OffsetHours != 0 {
			name = fmt.Sprintf("UTC%+d", t.OffsetHours)
		}
	}
	return time.FixedZone(name, t.OffsetHours*60*60)
}

// RetentionConfig groups the lookback window and pruning horizons.
type RetentionConfig struct {
	LookbackHours     int `yaml:"lookbackHours"`
	SafetyMarginHours int `yaml:"safetyMarginHours"`
	BlogDays          int `yaml:"blogDays"`
	BufferDays        int `yaml:"bufferDays"`
}

// Lookback is the fetch window for papers and posts.
func (r RetentionConfig) Lookback() time.Duration {
	return time.Duration(r.LookbackHours) * time.Hour
}

// StateConfig describes where the state document lives.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Name    string `yaml:"name"`
}

// SiteConfig describes a single paper site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds a category name and, for listing scanners, the page to crawl.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedConfig names one RSS/Atom feed.
type FeedConfig struct {
	Source string `yaml:"source"`
	URL    string `yaml:"url"`
}

// KeywordConfig is a single tracked organisation pattern.
type KeywordConfig struct {
	Label         string `yaml:"label"`
	Pattern       string `yaml:"pattern"`
	DisplayAs     string `yaml:"displayAs"`
	CaseSensitive bool   `yaml:"caseSensitive"`
	RawRegex      bool   `yaml:"rawRegex"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Slack    SlackConfig    `yaml:"slack"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// SlackConfig wires the bot token and target channel.
type SlackConfig struct {
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
	APIURL    string `yaml:"apiUrl"`
}

// Enabled reports whether both credentials are present.
func (s SlackConfig) Enabled() bool { return s.BotToken != "" && s.ChannelID != "" }

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool { return t.BotToken != "" && t.ChatID != "" }

// LLMConfig defines how to contact the OpenAI Responses API for the overview paragraph.
type LLMConfig struct {
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"baseUrl"`
	Instructions   string `yaml:"instructions"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxRetries     int    `yaml:"maxRetries"`
}

// Enabled reports whether an API key is configured.
func (l LLMConfig) Enabled() bool { return l.APIKey != "" }

// OutputConfig is where briefing archives are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// SchedulerConfig drives the serve daemon.
type SchedulerConfig struct {
	CollectInterval string `yaml:"collectInterval"`
	BriefAt         string `yaml:"briefAt"`
}

// Interval parses CollectInterval, falling back to six hours.
func (s SchedulerConfig) Interval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// BriefClock parses BriefAt (HH:MM), falling back to 08:00.
func (s SchedulerConfig) BriefClock() (hour, minute int) {
	t, err := time.Parse("15:04", strings.TrimSpace(s.BriefAt))
	if err != nil {
		return 8, 0
	}
	return t.Hour(), t.Minute()
}

// MetricsConfig exposes Prometheus metrics when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// StateRetention builds the pruning horizons the state engine applies.
func (c Config) StateRetention() state.Retention {
	return state.Retention{
		PaperHorizon: time.Duration(c.Retention.LookbackHours+c.Retention.SafetyMarginHours) * time.Hour,
		PostHorizon:  time.Duration(c.Retention.BlogDays) * 24 * time.Hour,
		BufferDays:   c.Retention.BufferDays,
		Location:     c.Timezone.Location(),
	}
}

// ArxivCategories lists every category configured across paper sites, without duplicates.
func (c Config) ArxivCategories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, site := range c.Sites {
		for _, cat := range site.Categories {
			if _, ok := seen[cat.Name]; ok || cat.Name == "" {
				continue
			}
			seen[cat.Name] = struct{}{}
			out = append(out, cat.Name)
		}
	}
	return out
}

// Load reads YAML configuration and applies environment overrides.
// The file is the explicit path, then $RESEARCH_BRIEFING_CONFIG, then config.yml, then config.example.yml.
func Load(path string) Config {
	cfg := defaultConfig()

	if resolved := resolvePath(path); resolved != "" {
		if raw, err := os.ReadFile(resolved); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", resolved, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", resolved, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
				cfg.Source = resolved
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

func resolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(configPathEnv); v != "" {
		return v
	}
	for _, candidate := range []string{defaultConfigFile, exampleConfigFile} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(stateDSNEnv); v != "" {
		c.State.DSN = v
		if c.State.Backend == "" || c.State.Backend == "file" {
			c.State.Backend = "postgres"
		}
	}

	if v := os.Getenv(slackTokenEnv); v != "" {
		c.Notifications.Slack.BotToken = v
	}

	if v := os.Getenv(slackChannelEnv); v != "" {
		c.Notifications.Slack.ChannelID = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Timezone.Name != "" || override.Timezone.OffsetHours != 0 {
		base.Timezone = override.Timezone
	}

	if override.Retention.LookbackHours > 0 {
		base.Retention.LookbackHours = override.Retention.LookbackHours
	}
	if override.Retention.SafetyMarginHours > 0 {
		base.Retention.SafetyMarginHours = override.Retention.SafetyMarginHours
	}
	if override.Retention.BlogDays > 0 {
		base.Retention.BlogDays = override.Retention.BlogDays
	}
	if override.Retention.BufferDays > 0 {
		base.Retention.BufferDays = override.Retention.BufferDays
	}

	if override.State.Backend != "" {
		base.State.Backend = override.State.Backend
	}
	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}
	if override.State.DSN != "" {
		base.State.DSN = override.State.DSN
	}
	if override.State.Table != "" {
		base.State.Table = override.State.Table
	}
	if override.State.Name != "" {
		base.State.Name = override.State.Name
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}
	// An explicit empty list disables a feed group, so nil and empty differ here.
	if override.BlogFeeds != nil {
		base.BlogFeeds = override.BlogFeeds
	}
	if override.SafetyFeeds != nil {
		base.SafetyFeeds = override.SafetyFeeds
	}
	if override.Keywords != nil {
		base.Keywords = override.Keywords
	}

	if override.Notifications.Slack.BotToken != "" {
		base.Notifications.Slack.BotToken = override.Notifications.Slack.BotToken
	}
	if override.Notifications.Slack.ChannelID != "" {
		base.Notifications.Slack.ChannelID = override.Notifications.Slack.ChannelID
	}
	if override.Notifications.Slack.APIURL != "" {
		base.Notifications.Slack.APIURL = override.Notifications.Slack.APIURL
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIURL != "" {
		base.Notifications.Telegram.APIURL = override.Notifications.Telegram.APIURL
	}

	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.Instructions != "" {
		base.LLM.Instructions = override.LLM.Instructions
	}
	if override.LLM.TimeoutSeconds > 0 {
		base.LLM.TimeoutSeconds = override.LLM.TimeoutSeconds
	}
	if override.LLM.MaxRetries > 0 {
		base.LLM.MaxRetries = override.LLM.MaxRetries
	}

	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}

	if override.Scheduler.CollectInterval != "" {
		base.Scheduler.CollectInterval = override.Scheduler.CollectInterval
	}
	if override.Scheduler.BriefAt != "" {
		base.Scheduler.BriefAt = override.Scheduler.BriefAt
	}

	if override.Metrics.Listen != "" {
		base.Metrics.Listen = override.Metrics.Listen
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Timezone: TimezoneConfig{Name: defaultZoneName, OffsetHours: defaultZoneOffset},
		Retention: RetentionConfig{
			LookbackHours:     48,
			SafetyMarginHours: 24,
			BlogDays:          30,
			BufferDays:        3,
		},
		State: StateConfig{Backend: "file", Path: "state.json", Table: "research_state", Name: "default"},
		Sites: []SiteConfig{
			{
				Name:    "arxiv",
				Scanner: "arxiv-api",
				Categories: []CategoryConfig{
					{Name: "cs.AI"},
					{Name: "cs.LG"},
					{Name: "stat.ML"},
				},
				Options: map[string]string{"endpoint": defaultArxivAPIURL, "maxResults": "200"},
			},
		},
		BlogFeeds: []FeedConfig{
			{Source: "Google Research", URL: "https://blog.research.google/feeds/posts/default?alt=rss"},
			{Source: "DeepMind", URL: "https://deepmind.google/blog/rss.xml"},
			{Source: "OpenAI", URL: "https://openai.com/blog/rss.xml"},
		},
		SafetyFeeds: []FeedConfig{},
		Keywords: []KeywordConfig{
			{Label: "Google", Pattern: "Google"},
			{Label: "DeepMind", Pattern: "DeepMind"},
			{Label: "Meta", Pattern: "Meta", CaseSensitive: true},
			{Label: "FAIR", Pattern: "FAIR", CaseSensitive: true},
			{Label: "Facebook AI Research", Pattern: "Facebook AI Research", DisplayAs: "FAIR"},
			{Label: "OpenAI", Pattern: "OpenAI"},
			{Label: "Anthropic", Pattern: "Anthropic"},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			Instructions:   "You write a three-sentence overview of today's AI research briefing for busy engineers. Mention the organisations involved. No lists, no markdown.",
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Output:    OutputConfig{Dir: "out"},
		Scheduler: SchedulerConfig{CollectInterval: "6h", BriefAt: "08:00"},
	}
}

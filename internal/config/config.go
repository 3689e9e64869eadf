package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "AUTOPOSTER_CONFIG"

	SourceTelegram = "telegram"
	SourceYouTube  = "youtube"

	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	ProviderGemini  = "gemini"
	ProviderChatGPT = "chatgpt"
	ProviderNone    = "none"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of a single autoposter invocation.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Facebook   FacebookConfig   `yaml:"facebook"`
	LLM        LLMConfig        `yaml:"llm"`
	Source     SourceConfig     `yaml:"source"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Captions   CaptionConfig    `yaml:"captions"`
	Limits     LimitsConfig     `yaml:"limits"`
	State      StateConfig      `yaml:"state"`
	Probe      ProbeConfig      `yaml:"probe"`
	Notify     NotifyConfig     `yaml:"notify"`
	Events     EventsConfig     `yaml:"events"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// TelegramConfig describes the bot used both as media source and notifier.
type TelegramConfig struct {
	BotToken     string        `yaml:"botToken" envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID       int64         `yaml:"chatId" envconfig:"TELEGRAM_CHAT_ID"`
	NotifyChatID int64         `yaml:"notifyChatId" envconfig:"TELEGRAM_NOTIFY_CHAT_ID"`
	APIEndpoint  string        `yaml:"apiEndpoint" envconfig:"TELEGRAM_API_ENDPOINT"`
	FileEndpoint string        `yaml:"fileEndpoint" envconfig:"TELEGRAM_FILE_ENDPOINT"`
	BatchSize    int           `yaml:"batchSize" envconfig:"TELEGRAM_BATCH_SIZE"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TELEGRAM_TIMEOUT"`
}

// FacebookConfig holds the destination page and its Graph API credentials.
type FacebookConfig struct {
	PageID      string        `yaml:"pageId" envconfig:"FB_PAGE_ID"`
	AccessToken string        `yaml:"accessToken" envconfig:"FB_ACCESS_TOKEN"`
	GraphURL    string        `yaml:"graphUrl" envconfig:"FB_GRAPH_URL"`
	APIVersion  string        `yaml:"apiVersion" envconfig:"FB_API_VERSION"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"FB_TIMEOUT"`
}

// LLMConfig selects and configures the caption rewriter.
type LLMConfig struct {
	Provider string        `yaml:"provider" envconfig:"LLM_PROVIDER"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"LLM_TIMEOUT"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	ChatGPT  ChatGPTConfig `yaml:"chatgpt"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	APIKey  string `yaml:"apiKey" envconfig:"GEMINI_API_KEY"`
	Model   string `yaml:"model" envconfig:"GEMINI_MODEL"`
	BaseURL string `yaml:"baseUrl" envconfig:"GEMINI_BASE_URL"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible API.
type ChatGPTConfig struct {
	Endpoint string `yaml:"endpoint" envconfig:"CHATGPT_ENDPOINT"`
	Model    string `yaml:"model" envconfig:"CHATGPT_MODEL"`
	APIKey   string `yaml:"apiKey" envconfig:"CHATGPT_API_KEY"`
}

// SourceConfig picks the media source strategy.
type SourceConfig struct {
	Kind     string `yaml:"kind" envconfig:"SOURCE_KIND"`
	MediaDir string `yaml:"mediaDir" envconfig:"MEDIA_DIR"`
}

// YouTubeConfig drives the Shorts search-and-download source.
type YouTubeConfig struct {
	Keywords      []string      `yaml:"keywords" envconfig:"YOUTUBE_KEYWORDS"`
	SearchResults int           `yaml:"searchResults" envconfig:"YOUTUBE_SEARCH_RESULTS"`
	MaxDuration   time.Duration `yaml:"maxDuration" envconfig:"YOUTUBE_MAX_DURATION"`
	YTDLPPath     string        `yaml:"ytdlpPath" envconfig:"YTDLP_PATH"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"YOUTUBE_TIMEOUT"`
}

// ClassifierConfig holds the video validation thresholds.
type ClassifierConfig struct {
	MinDuration      time.Duration `yaml:"minDuration" envconfig:"CLASSIFIER_MIN_DURATION"`
	MaxDuration      time.Duration `yaml:"maxDuration" envconfig:"CLASSIFIER_MAX_DURATION"`
	ReelMaxDuration  time.Duration `yaml:"reelMaxDuration" envconfig:"CLASSIFIER_REEL_MAX_DURATION"`
	RatioTolerance   float64       `yaml:"ratioTolerance" envconfig:"CLASSIFIER_RATIO_TOLERANCE"`
	DowngradeInvalid bool          `yaml:"downgradeInvalid" envconfig:"CLASSIFIER_DOWNGRADE_INVALID"`
}

// CaptionConfig holds the caption fallback material.
type CaptionConfig struct {
	Boilerplate  []string `yaml:"boilerplate"`
	FallbackPool []string `yaml:"fallbackPool"`
}

// LimitsConfig bounds a single invocation.
type LimitsConfig struct {
	MaxFileSize    int64 `yaml:"maxFileSize" envconfig:"MAX_FILE_SIZE"`
	MaxPostsPerRun int   `yaml:"maxPostsPerRun" envconfig:"MAX_POSTS_PER_RUN"`
}

// StateConfig places the cursor and dedup history.
type StateConfig struct {
	Backend        string        `yaml:"backend" envconfig:"STATE_BACKEND"`
	Dir            string        `yaml:"dir" envconfig:"STATE_DIR"`
	CursorFile     string        `yaml:"cursorFile" envconfig:"STATE_CURSOR_FILE"`
	DedupFile      string        `yaml:"dedupFile" envconfig:"STATE_DEDUP_FILE"`
	SQLitePath     string        `yaml:"sqlitePath" envconfig:"STATE_SQLITE_PATH"`
	DSN            string        `yaml:"dsn" envconfig:"DATABASE_DSN"`
	LockStaleAfter time.Duration `yaml:"lockStaleAfter" envconfig:"STATE_LOCK_STALE_AFTER"`
}

// ProbeConfig locates the media inspection tool.
type ProbeConfig struct {
	FFProbePath string        `yaml:"ffprobePath" envconfig:"FFPROBE_PATH"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"FFPROBE_TIMEOUT"`
}

// NotifyConfig toggles progress messages besides the terminal one.
type NotifyConfig struct {
	Progress bool `yaml:"progress" envconfig:"NOTIFY_PROGRESS"`
}

// EventsConfig enables the optional AMQP outcome stream.
type EventsConfig struct {
	AMQPURL string `yaml:"amqpUrl" envconfig:"EVENTS_AMQP_URL"`
	Queue   string `yaml:"queue" envconfig:"EVENTS_QUEUE"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// NotifyChat returns the chat used for status messages.
func (t TelegramConfig) NotifyChat() int64 {
	if t.NotifyChatID != 0 {
		return t.NotifyChatID
	}
	return t.ChatID
}

// Load builds the configuration from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit YAML path; an empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var problems []string

	if c.Telegram.BotToken == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.ChatID == 0 {
		problems = append(problems, "TELEGRAM_CHAT_ID is required")
	}
	if c.Facebook.PageID == "" {
		problems = append(problems, "FB_PAGE_ID is required")
	}
	if c.Facebook.AccessToken == "" {
		problems = append(problems, "FB_ACCESS_TOKEN is required")
	}

	switch c.Source.Kind {
	case SourceTelegram:
	case SourceYouTube:
		if len(c.YouTube.Keywords) == 0 {
			problems = append(problems, "YOUTUBE_KEYWORDS is required for the youtube source")
		}
	default:
		problems = append(problems, fmt.Sprintf("SOURCE_KIND %q is not supported", c.Source.Kind))
	}

	switch c.LLM.Provider {
	case ProviderNone:
	case ProviderGemini:
		if c.LLM.Gemini.APIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderChatGPT:
		if c.LLM.ChatGPT.APIKey == "" {
			problems = append(problems, "CHATGPT_API_KEY is required for the chatgpt provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("LLM_PROVIDER %q is not supported", c.LLM.Provider))
	}

	switch c.State.Backend {
	case BackendJSON, BackendSQLite:
	case BackendPostgres:
		if c.State.DSN == "" {
			problems = append(problems, "DATABASE_DSN is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("STATE_BACKEND %q is not supported", c.State.Backend))
	}

	if c.Limits.MaxFileSize <= 0 {
		problems = append(problems, "MAX_FILE_SIZE must be positive")
	}
	if c.Limits.MaxPostsPerRun <= 0 {
		problems = append(problems, "MAX_POSTS_PER_RUN must be positive")
	}

	cl := c.Classifier
	if cl.MinDuration < 0 || cl.MaxDuration < cl.MinDuration {
		problems = append(problems, "classifier duration range is empty")
	}
	if cl.ReelMaxDuration > cl.MaxDuration {
		problems = append(problems, "classifier reel max duration exceeds max duration")
	}
	if cl.RatioTolerance < 0 {
		problems = append(problems, "classifier ratio tolerance must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// normalize fills in values that are derived from others, and picks an LLM
// provider from whichever key is present when none was chosen explicitly.
func (c *Config) normalize() {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))

	if c.LLM.Provider == "" {
		switch {
		case c.LLM.Gemini.APIKey != "":
			c.LLM.Provider = ProviderGemini
		case c.LLM.ChatGPT.APIKey != "":
			c.LLM.Provider = ProviderChatGPT
		default:
			c.LLM.Provider = ProviderNone
		}
	}

	if c.State.Dir == "" {
		c.State.Dir = "state"
	}
	if c.State.CursorFile == "" {
		c.State.CursorFile = c.State.Dir + "/last_update_offset.txt"
	}
	if c.State.DedupFile == "" {
		c.State.DedupFile = c.State.Dir + "/posted.json"
	}
	if c.State.SQLitePath == "" {
		c.State.SQLitePath = c.State.Dir + "/autoposter.db"
	}
}

func defaultConfig() Config {
	return Config{
		Telegram: TelegramConfig{
			BatchSize: 1,
			Timeout:   30 * time.Second,
		},
		Facebook: FacebookConfig{
			GraphURL:   "https://graph.facebook.com",
			APIVersion: "v23.0",
			Timeout:    5 * time.Minute,
		},
		LLM: LLMConfig{
			Timeout: 30 * time.Second,
			Gemini:  GeminiConfig{Model: "gemini-2.0-flash"},
			ChatGPT: ChatGPTConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
		},
		Source: SourceConfig{
			Kind:     SourceTelegram,
			MediaDir: "videos",
		},
		YouTube: YouTubeConfig{
			SearchResults: 10,
			MaxDuration:   65 * time.Second,
			YTDLPPath:     "yt-dlp",
			Timeout:       2 * time.Minute,
		},
		Classifier: ClassifierConfig{
			MinDuration:     3 * time.Second,
			MaxDuration:     90 * time.Second,
			ReelMaxDuration: 60 * time.Second,
			RatioTolerance:  0.02,
		},
		Captions: CaptionConfig{
			Boilerplate: []string{
				"video", "photo", "foto", "image", "media",
				"video from bot", "photo from bot",
				"video dari telegram bot", "photo dari telegram bot", "foto dari telegram bot",
			},
			FallbackPool: []string{
				"Wait for it... 😂 #funny #viral #foryou",
				"This made our day! ✨ #entertainment #fyp #reels",
				"Can't stop watching this 🤣 #viral #lol #trending",
				"Just a little something to brighten your feed 🌟 #daily #fun #reels",
				"Tag someone who needs to see this 👀 #viral #share #foryou",
			},
		},
		Limits: LimitsConfig{
			MaxFileSize:    1 << 30,
			MaxPostsPerRun: 1,
		},
		State: StateConfig{
			Backend:        BackendJSON,
			Dir:            "state",
			LockStaleAfter: 30 * time.Minute,
		},
		Probe: ProbeConfig{
			FFProbePath: "ffprobe",
			Timeout:     30 * time.Second,
		},
		Notify: NotifyConfig{Progress: true},
		Events: EventsConfig{Queue: "autoposter.outcomes"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type WebSocket struct {
	URL               string `yaml:"url"`
	ReconnectAttempts *int   `yaml:"reconnectAttempts"` // 5 when unset, 0 disables reconnecting
	ReconnectDelay    string `yaml:"reconnectDelay"`   // 1s, multiplied by the attempt number
	HandshakeTimeout  string `yaml:"handshakeTimeout"` // 10s
	WriteTimeout      string `yaml:"writeTimeout"`     // 5s
	PingInterval      string `yaml:"pingInterval"`     // 15s
}

type API struct {
	BaseURL      string `yaml:"baseURL"`
	Timeout      string `yaml:"timeout"`      // 10s
	HistoryLimit int    `yaml:"historyLimit"` // 50
}

type Typing struct {
	Idle string `yaml:"idle"` // 1s
}

type Inspector struct {
	Addr           string   `yaml:"addr"` // empty disables the inspector
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Identity struct {
	Dir string `yaml:"dir"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chatsync
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	WebSocket WebSocket `yaml:"websocket"`
	API       API       `yaml:"api"`
	Typing    Typing    `yaml:"typing"`
	Inspector Inspector `yaml:"inspector"`
	Identity  Identity  `yaml:"identity"`
	Logging   Logging   `yaml:"logging"`
}

const defaultPath = "./config/config.yaml"

// Load reads .env (if any), then the YAML file at CONFIG_PATH, then the
// CHAT_* environment overrides. The default config path may be absent; an
// explicit CONFIG_PATH must exist.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CHAT_WS_URL")); v != "" {
		c.WebSocket.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_API_BASE_URL")); v != "" {
		c.API.BaseURL = v
	}
	if v, ok := os.LookupEnv("CHAT_INSPECTOR_ADDR"); ok {
		c.Inspector.Addr = strings.TrimSpace(v)
	}
}

func (c *Config) validate() error {
	if c.WebSocket.URL == "" {
		return errors.New("websocket.url is required")
	}
	if !strings.HasPrefix(c.WebSocket.URL, "ws://") && !strings.HasPrefix(c.WebSocket.URL, "wss://") {
		return fmt.Errorf("websocket.url must be ws:// or wss://, got %q", c.WebSocket.URL)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.baseURL is required")
	}
	if n := c.WebSocket.ReconnectAttempts; n != nil && *n < 0 {
		return errors.New("websocket.reconnectAttempts must not be negative")
	}

	// defaults
	if c.WebSocket.ReconnectAttempts == nil {
		n := 5
		c.WebSocket.ReconnectAttempts = &n
	}
	if c.API.HistoryLimit <= 0 {
		c.API.HistoryLimit = 50
	}
	if c.Identity.Dir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Identity.Dir = filepath.Join(dir, "chatsync")
		} else {
			c.Identity.Dir = ".chatsync"
		}
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "chatsync"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

// Attempts is the reconnect budget after validate; 0 means never reconnect.
func (w WebSocket) Attempts() int {
	if w.ReconnectAttempts == nil {
		return 5
	}
	return *w.ReconnectAttempts
}

func (w WebSocket) Delay() time.Duration { return parseDurationOr(time.Second, w.ReconnectDelay) }

func (w WebSocket) Handshake() time.Duration {
	return parseDurationOr(10*time.Second, w.HandshakeTimeout)
}

func (w WebSocket) Write() time.Duration { return parseDurationOr(5*time.Second, w.WriteTimeout) }

func (w WebSocket) Ping() time.Duration { return parseDurationOr(15*time.Second, w.PingInterval) }

func (a API) CallTimeout() time.Duration { return parseDurationOr(10*time.Second, a.Timeout) }

func (t Typing) IdleAfter() time.Duration { return parseDurationOr(time.Second, t.Idle) }

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

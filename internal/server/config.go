package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration. Files are HCL;
// environment variables override the file.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Redis  RedisSettings  `hcl:"redis,block"`
	Timers TimerSettings  `hcl:"timers,block"`
	Limits LimitSettings  `hcl:"limits,block"`
}

// ServerSettings contains the listener and environment knobs.
type ServerSettings struct {
	Address     string   `hcl:"address,optional"`
	Port        int      `hcl:"port,optional"`
	LogLevel    string   `hcl:"log_level,optional"`
	Environment string   `hcl:"environment,optional"` // development or production
	JWTSecret   string   `hcl:"jwt_secret,optional"`
	CORSOrigins []string `hcl:"cors_origins,optional"`
}

// RedisSettings locates the authoritative store. Offline mode swaps in
// an embedded store for local play.
type RedisSettings struct {
	Host    string `hcl:"host,optional"`
	Port    int    `hcl:"port,optional"`
	Offline bool   `hcl:"offline,optional"`
}

// TimerSettings are the scheduled-callback delays, in milliseconds in
// the file for easy tuning.
type TimerSettings struct {
	BotDelayMS        int  `hcl:"bot_delay_ms,optional"`
	TrickDelayMS      int  `hcl:"trick_delay_ms,optional"`
	RoundDelayMS      int  `hcl:"round_delay_ms,optional"`
	SawaWindowMS      int  `hcl:"sawa_window_ms,optional"`
	SawaBotWindowMS   int  `hcl:"sawa_bot_window_ms,optional"`
	QaydHumanWindowMS int  `hcl:"qayd_human_window_ms,optional"`
	QaydBotWindowMS   int  `hcl:"qayd_bot_window_ms,optional"`
	FastForward       bool `hcl:"fast_forward,optional"`
}

// LimitSettings bound per-connection action throughput.
type LimitSettings struct {
	ActionsPerSecond float64 `hcl:"actions_per_second,optional"`
	Burst            int     `hcl:"burst,optional"`
}

// DefaultConfig returns the configuration a bare server starts with.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:     "0.0.0.0",
			Port:        8090,
			LogLevel:    "info",
			Environment: "development",
		},
		Redis: RedisSettings{
			Host: "localhost",
			Port: 6379,
		},
		Timers: TimerSettings{
			BotDelayMS:        1000,
			TrickDelayMS:      1200,
			RoundDelayMS:      1500,
			SawaWindowMS:      15000,
			SawaBotWindowMS:   3000,
			QaydHumanWindowMS: 60000,
			QaydBotWindowMS:   5000,
		},
		Limits: LimitSettings{
			ActionsPerSecond: 8,
			Burst:            16,
		},
	}
}

// configFile mirrors Config with every block optional, so a file can
// override just the sections it cares about.
type configFile struct {
	Server *ServerSettings `hcl:"server,block"`
	Redis  *RedisSettings  `hcl:"redis,block"`
	Timers *TimerSettings  `hcl:"timers,block"`
	Limits *LimitSettings  `hcl:"limits,block"`
}

// LoadConfig reads an HCL file over the defaults. A missing file is
// not an error; env overrides and validation still apply.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			parser := hclparse.NewParser()
			file, diags := parser.ParseHCLFile(filename)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to parse config: %s", diags.Error())
			}
			var raw configFile
			if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
			}
			if raw.Server != nil {
				cfg.Server = *raw.Server
			}
			if raw.Redis != nil {
				cfg.Redis = *raw.Redis
			}
			if raw.Timers != nil {
				cfg.Timers = *raw.Timers
			}
			if raw.Limits != nil {
				cfg.Limits = *raw.Limits
			}
			cfg.applyDefaults()
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults backfills values a partial config block zeroed out.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = d.Server.LogLevel
	}
	if c.Server.Environment == "" {
		c.Server.Environment = d.Server.Environment
	}
	if c.Redis.Host == "" {
		c.Redis.Host = d.Redis.Host
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = d.Redis.Port
	}
	if c.Timers.BotDelayMS == 0 {
		c.Timers.BotDelayMS = d.Timers.BotDelayMS
	}
	if c.Timers.TrickDelayMS == 0 {
		c.Timers.TrickDelayMS = d.Timers.TrickDelayMS
	}
	if c.Timers.RoundDelayMS == 0 {
		c.Timers.RoundDelayMS = d.Timers.RoundDelayMS
	}
	if c.Timers.SawaWindowMS == 0 {
		c.Timers.SawaWindowMS = d.Timers.SawaWindowMS
	}
	if c.Timers.SawaBotWindowMS == 0 {
		c.Timers.SawaBotWindowMS = d.Timers.SawaBotWindowMS
	}
	if c.Timers.QaydHumanWindowMS == 0 {
		c.Timers.QaydHumanWindowMS = d.Timers.QaydHumanWindowMS
	}
	if c.Timers.QaydBotWindowMS == 0 {
		c.Timers.QaydBotWindowMS = d.Timers.QaydBotWindowMS
	}
	if c.Limits.ActionsPerSecond == 0 {
		c.Limits.ActionsPerSecond = d.Limits.ActionsPerSecond
	}
	if c.Limits.Burst == 0 {
		c.Limits.Burst = d.Limits.Burst
	}
}

// applyEnv layers the deployment environment over the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = p
		}
	}
	if v := os.Getenv("OFFLINE_MODE"); v != "" {
		c.Redis.Offline = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
		for i := range c.Server.CORSOrigins {
			c.Server.CORSOrigins[i] = strings.TrimSpace(c.Server.CORSOrigins[i])
		}
	}
	if v := os.Getenv("BALOOT_ENV"); v != "" {
		c.Server.Environment = v
	}
}

// Validate rejects configurations the server cannot safely run with.
// A production deployment without a JWT secret fails here, at startup,
// not on the first login.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.Environment == "production" && c.Server.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Limits.ActionsPerSecond <= 0 {
		return fmt.Errorf("actions_per_second must be positive")
	}
	return nil
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ListenAddr returns the bind address for the websocket listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Delay helpers with fast-forward applied.

func (t TimerSettings) scale(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if t.FastForward {
		d /= 10
	}
	return d
}

func (t TimerSettings) BotDelay() time.Duration   { return t.scale(t.BotDelayMS) }
func (t TimerSettings) TrickDelay() time.Duration { return t.scale(t.TrickDelayMS) }
func (t TimerSettings) RoundDelay() time.Duration { return t.scale(t.RoundDelayMS) }

func (t TimerSettings) SawaWindow(isBot bool) time.Duration {
	if isBot {
		return t.scale(t.SawaBotWindowMS)
	}
	return t.scale(t.SawaWindowMS)
}

// TurnWindow converts the per-room turn duration setting, honoring
// fast-forward like every other timer.
func (t TimerSettings) TurnWindow(seconds int) time.Duration {
	return t.scale(seconds * 1000)
}

func (t TimerSettings) QaydWindow(isBot bool) time.Duration {
	if isBot {
		return t.scale(t.QaydBotWindowMS)
	}
	return t.scale(t.QaydHumanWindowMS)
}

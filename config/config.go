package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"newavalon/game"
	"newavalon/rules"
)

var (
	ErrMissingEnv = errors.New("missing-env")
	ErrInvalidEnv = errors.New("invalid-env")
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	PostgresURL    string
	JWTKey         string
	TokenMaxAge    time.Duration
	Debug          bool
	LogLevel       string
	RateLimit      float64
	RateBurst      int
	ActionQueue    int
	Room           game.RoomConfig
}

// Load reads the optional .env files and then the process environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any lookup function shaped like os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	defaults := game.DefaultRoomConfig()

	cfg := Config{
		Addr:           p.str("ADDR", ":5000"),
		AllowedOrigins: p.list("ALLOWED_ORIGINS"),
		PostgresURL:    p.str("POSTGRES_URL", ""),
		JWTKey:         p.str("JWT_KEY", ""),
		TokenMaxAge:    p.duration("TOKEN_MAX_AGE", 24*time.Hour),
		Debug:          p.boolean("DEBUG", false),
		LogLevel:       p.str("LOG_LEVEL", "info"),
		RateLimit:      p.float("RATE_LIMIT", 20),
		RateBurst:      p.integer("RATE_BURST", 40),
		ActionQueue:    p.integer("ACTION_QUEUE", 1024),
		Room: game.RoomConfig{
			GracePeriod:       p.duration("GRACE_PERIOD", defaults.GracePeriod),
			RemovalTimeout:    p.duration("REMOVAL_TIMEOUT", defaults.RemovalTimeout),
			InactivityTimeout: p.duration("INACTIVITY_TIMEOUT", defaults.InactivityTimeout),
			EmptyTimeout:      p.duration("EMPTY_TIMEOUT", defaults.EmptyTimeout),
			Policy:            game.DisconnectPolicy(p.str("DISCONNECT_POLICY", string(defaults.Policy))),
			MaxPlayers:        p.integer("MAX_PLAYERS", defaults.MaxPlayers),
			Rules: rules.Config{
				FinalRound:          p.integer("FINAL_ROUND", defaults.Rules.FinalRound),
				FinalRoundTurnLimit: p.integer("FINAL_ROUND_TURN_LIMIT", defaults.Rules.FinalRoundTurnLimit),
			},
		},
	}

	if p.err != nil {
		return Config{}, p.err
	}
	if len(cfg.AllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("%w: ALLOWED_ORIGINS", ErrMissingEnv)
	}
	if cfg.JWTKey == "" {
		return Config{}, fmt.Errorf("%w: JWT_KEY", ErrMissingEnv)
	}
	if !cfg.Room.Policy.Valid() {
		return Config{}, fmt.Errorf("%w: DISCONNECT_POLICY=%q", ErrInvalidEnv, cfg.Room.Policy)
	}
	if cfg.Room.MaxPlayers < 1 {
		return Config{}, fmt.Errorf("%w: MAX_PLAYERS must be positive", ErrInvalidEnv)
	}
	if cfg.Room.Rules.FinalRound < 1 {
		return Config{}, fmt.Errorf("%w: FINAL_ROUND must be positive", ErrInvalidEnv)
	}
	return cfg, nil
}

// parser keeps the first conversion error and returns fallbacks afterwards.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %w", ErrInvalidEnv, key, value, err)
	}
}

func (p *parser) str(key, fallback string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return fallback
}

func (p *parser) list(key string) []string {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *parser) integer(key string, fallback int) int {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) boolean(key string, fallback bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

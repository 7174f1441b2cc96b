// Package config loads the engine configuration from a YAML file with
// INTAKE_* environment overrides layered on top. Every policy constant the
// engine uses (similarity thresholds, detector windows, loop bounds) lives
// here so nothing hides in module-level state.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Gateway    Gateway    `koanf:"gateway"`
	Store      Store      `koanf:"store"`
	LLM        LLM        `koanf:"llm"`
	Embeddings Embeddings `koanf:"embeddings"`
	Classifier Classifier `koanf:"classifier"`
	Drafter    Drafter    `koanf:"drafter"`
	Retrieval  Retrieval  `koanf:"retrieval"`
	Detectors  Detectors  `koanf:"detectors"`
	Session    Session    `koanf:"session"`
	Hours      Hours      `koanf:"hours"`
	FastTrack  FastTrack  `koanf:"fasttrack"`
	Scheduler  Scheduler  `koanf:"scheduler"`
}

type Gateway struct {
	Addr string `koanf:"addr"`
}

type Store struct {
	DBPath string `koanf:"db_path"`
}

type LLM struct {
	Enabled    bool   `koanf:"enabled"`
	APIKey     string `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	Model      string `koanf:"model"`
	TimeoutSec int    `koanf:"timeout_seconds"`
}

type Embeddings struct {
	Enabled bool   `koanf:"enabled"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type Classifier struct {
	LightMaxTokens   int     `koanf:"light_max_tokens"`
	LightTemperature float64 `koanf:"light_temperature"`
	FullMaxTokens    int     `koanf:"full_max_tokens"`
	FullTemperature  float64 `koanf:"full_temperature"`
	// ShortMessageRunes bounds when the light tier applies: only the first
	// user message, and only when it is at most this long.
	ShortMessageRunes int `koanf:"short_message_runes"`
	// MaxContextPasses caps the agentic context-expansion loop.
	MaxContextPasses int `koanf:"max_context_passes"`
	// MinContextChars terminates the loop early when a fetch returns less.
	MinContextChars int     `koanf:"min_context_chars"`
	HighConfidence  float64 `koanf:"high_confidence"`
	// LowConfidence marks a pass that counts against the escalation guard.
	LowConfidence float64 `koanf:"low_confidence"`
}

type Drafter struct {
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

type Retrieval struct {
	HighThreshold   float64 `koanf:"high_threshold"`
	MediumThreshold float64 `koanf:"medium_threshold"`
	MaxCandidates   int     `koanf:"max_candidates"`
	TopK            int     `koanf:"top_k"`
	// RatingBoost up-weights rating-5 tickets before ranking.
	RatingBoost float64 `koanf:"rating_boost"`
}

type Detectors struct {
	DuplicateWindowMin int `koanf:"duplicate_window_minutes"`
	OutageWindowMin    int `koanf:"outage_window_minutes"`
	OutageMinTickets   int `koanf:"outage_min_tickets"`
}

type Session struct {
	IdleTimeoutMin   int `koanf:"idle_timeout_minutes"`
	MaxQuestions     int `koanf:"max_questions"`
	MaxLowConfidence int `koanf:"max_low_confidence"`
	MaxMessageRunes  int `koanf:"max_message_runes"`
}

type Hours struct {
	OpenHour       int   `koanf:"open_hour"`
	CloseHour      int   `koanf:"close_hour"`
	WorkDays       []int `koanf:"work_days"`
	ClosingSoonMin int   `koanf:"closing_soon_minutes"`
}

type FastTrack struct {
	RulesPath string `koanf:"rules_path"`
}

type Scheduler struct {
	SweepSpec   string `koanf:"sweep_spec"`
	ReindexSpec string `koanf:"reindex_spec"`
}

// Load reads the YAML file at path (missing file falls back to defaults),
// then overlays INTAKE_* environment variables, e.g. INTAKE_LLM.API_KEY.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("INTAKE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "INTAKE_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		Gateway: Gateway{Addr: ":8085"},
		Store:   Store{DBPath: "intake.sqlite"},
		LLM: LLM{
			Enabled:    true,
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			TimeoutSec: 30,
		},
		Embeddings: Embeddings{
			Enabled: true,
			Model:   "text-embedding-3-small",
		},
		Classifier: Classifier{
			LightMaxTokens:    300,
			LightTemperature:  0,
			FullMaxTokens:     900,
			FullTemperature:   0.2,
			ShortMessageRunes: 120,
			MaxContextPasses:  2,
			MinContextChars:   80,
			HighConfidence:    0.75,
			LowConfidence:     0.5,
		},
		Drafter: Drafter{
			MaxTokens:   700,
			Temperature: 0.3,
		},
		Retrieval: Retrieval{
			HighThreshold:   0.78,
			MediumThreshold: 0.50,
			MaxCandidates:   3,
			TopK:            10,
			RatingBoost:     1.2,
		},
		Detectors: Detectors{
			DuplicateWindowMin: 10,
			OutageWindowMin:    10,
			OutageMinTickets:   3,
		},
		Session: Session{
			IdleTimeoutMin:   30,
			MaxQuestions:     4,
			MaxLowConfidence: 2,
			MaxMessageRunes:  2000,
		},
		Hours: Hours{
			OpenHour:       9,
			CloseHour:      18,
			WorkDays:       []int{1, 2, 3, 4, 5},
			ClosingSoonMin: 120,
		},
		FastTrack: FastTrack{RulesPath: "fasttrack.yaml"},
		Scheduler: Scheduler{
			SweepSpec:   "@every 1m",
			ReindexSpec: "0 3 * * *",
		},
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	policyPathEnv = "NEGOTIATION_POLICY_PATH"
	databaseEnv   = "DATABASE_URL"
	jwtSecretEnv  = "JWT_SECRET"
	redisEnv      = "REDIS_URL"
	listenEnv     = "LISTEN_ADDR"
)

// Config holds process-level settings. Connection strings and secrets
// come from the environment; negotiation tuning comes from an optional
// YAML policy file.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	RedisURL    string
	ListenAddr  string
	Policy      Policy
}

// Policy groups the tunables of the negotiation workflow.
type Policy struct {
	Discounts DiscountConfig `yaml:"discounts"`
	Decision  DecisionConfig `yaml:"decision"`
	Workflow  WorkflowConfig `yaml:"workflow"`
}

// DiscountConfig is the target-discount lookup table, percent per
// service type, with a price-tier adjustment applied on top.
type DiscountConfig struct {
	Accommodation  float64 `yaml:"accommodation"`
	Tours          float64 `yaml:"tours"`
	Transportation float64 `yaml:"transportation"`
	Dining         float64 `yaml:"dining"`
	Activities     float64 `yaml:"activities"`
	TierBonus      float64 `yaml:"tierBonus"`      // added when price > TierHighPrice
	TierPenalty    float64 `yaml:"tierPenalty"`    // subtracted when price < TierLowPrice
	TierHighPrice  float64 `yaml:"tierHighPrice"`
	TierLowPrice   float64 `yaml:"tierLowPrice"`
}

// DecisionConfig configures the offer-analysis bands (percent deviation
// from target price) and the negotiation style multiplier.
type DecisionConfig struct {
	AcceptBand      float64 `yaml:"acceptBand"`
	ReviewBand      float64 `yaml:"reviewBand"`
	RejectBand      float64 `yaml:"rejectBand"`
	Style           string  `yaml:"style"` // conservative | balanced | aggressive
	CounterMarkupPc float64 `yaml:"counterMarkupPc"`
}

// WorkflowConfig configures the orchestrator poller.
type WorkflowConfig struct {
	PollInterval        time.Duration `yaml:"pollInterval"`
	CompletionThreshold float64       `yaml:"completionThreshold"`
	PartialThreshold    float64       `yaml:"partialThreshold"`
	Expiry              time.Duration `yaml:"expiry"`
}

// DefaultPolicy returns the built-in tuning used when no policy file is
// configured.
func DefaultPolicy() Policy {
	return Policy{
		Discounts: DiscountConfig{
			Accommodation:  20,
			Tours:          25,
			Transportation: 15,
			Dining:         12,
			Activities:     18,
			TierBonus:      5,
			TierPenalty:    5,
			TierHighPrice:  500,
			TierLowPrice:   100,
		},
		Decision: DecisionConfig{
			AcceptBand:      10,
			ReviewBand:      20,
			RejectBand:      35,
			Style:           "balanced",
			CounterMarkupPc: 5,
		},
		Workflow: WorkflowConfig{
			PollInterval:        5 * time.Minute,
			CompletionThreshold: 0.8,
			PartialThreshold:    0.5,
			Expiry:              24 * time.Hour,
		},
	}
}

// Load reads .env (if present), required env vars, and the optional
// policy YAML.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL: os.Getenv(databaseEnv),
		JWTSecret:   os.Getenv(jwtSecretEnv),
		RedisURL:    os.Getenv(redisEnv),
		ListenAddr:  os.Getenv(listenEnv),
		Policy:      DefaultPolicy(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("%s is empty", databaseEnv)
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("%s is empty", jwtSecretEnv)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if path := os.Getenv(policyPathEnv); path != "" {
		p, err := LoadPolicy(path)
		if err != nil {
			return cfg, fmt.Errorf("load policy %s: %w", path, err)
		}
		cfg.Policy = p
	}

	return cfg, nil
}

// LoadPolicy reads a policy YAML file, filling gaps with defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, err
	}

	if p.Workflow.PollInterval <= 0 {
		p.Workflow.PollInterval = 5 * time.Minute
	}
	if p.Workflow.CompletionThreshold <= 0 || p.Workflow.CompletionThreshold > 1 {
		p.Workflow.CompletionThreshold = 0.8
	}
	if p.Workflow.PartialThreshold <= 0 || p.Workflow.PartialThreshold >= p.Workflow.CompletionThreshold {
		p.Workflow.PartialThreshold = 0.5
	}
	if p.Workflow.Expiry <= 0 {
		p.Workflow.Expiry = 24 * time.Hour
	}
	return p, nil
}

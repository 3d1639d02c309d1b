// Package config resolves engine settings from a YAML file, SENTINEL_* env
// vars, and CLI flags, tracking where each value came from. Weight tables are
// validated at load time: a table that does not sum to 1.0 aborts resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sentinelsearch/sentinel/internal/behavior"
	"github.com/sentinelsearch/sentinel/internal/rank"
	"github.com/sentinelsearch/sentinel/internal/trust"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// Classifier strategies.
const (
	ClassifierHeuristic = "heuristic"
	ClassifierBayes     = "bayes"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath    string
	CLIDBPath     string
	CLICorpus     string
	CLIClassifier string
}

// ResolvedConfig is the fully layered engine configuration. Scalar paths keep
// provenance; the structured tables (weights, tiers, keywords, behavior) come
// from the file or the built-in defaults.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath        ResolvedValue `json:"db_path"`
	CorpusPath    ResolvedValue `json:"corpus_path"`
	Classifier    ResolvedValue `json:"classifier"`
	ModelPath     ResolvedValue `json:"model_path"`
	TokenizerPath ResolvedValue `json:"tokenizer_path"`

	EmergencyTrustFloor float64      `json:"emergency_trust_floor"`
	Standard            rank.Weights `json:"standard_weights"`
	Emergency           rank.Weights `json:"emergency_weights"`

	Tiers             trust.Tiers     `json:"trust_tiers"`
	EmergencyKeywords []string        `json:"emergency_keywords,omitempty"`
	Behavior          behavior.Config `json:"-"`
}

type fileConfig struct {
	DBPath     string `yaml:"db_path"`
	CorpusPath string `yaml:"corpus_path"`
	Classifier string `yaml:"classifier"`
	Embedder   struct {
		ModelPath     string `yaml:"model_path"`
		TokenizerPath string `yaml:"tokenizer_path"`
	} `yaml:"embedder"`
	EmergencyTrustFloor *float64 `yaml:"emergency_trust_floor"`
	Weights             struct {
		Standard  *rank.Weights `yaml:"standard"`
		Emergency *rank.Weights `yaml:"emergency"`
	} `yaml:"weights"`
	TrustTiers        trust.Tiers `yaml:"trust_tiers"`
	EmergencyKeywords []string    `yaml:"emergency_keywords"`
	Behavior          struct {
		DwellThresholdSeconds float64 `yaml:"dwell_threshold_seconds"`
		PenaltyStep           float64 `yaml:"penalty_step"`
		RewardStep            float64 `yaml:"reward_step"`
		RetentionHours        float64 `yaml:"retention_hours"`
	} `yaml:"behavior"`
}

// DefaultEmergencyTrustFloor drops sources below it from emergency responses.
const DefaultEmergencyTrustFloor = 0.7

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sentinel", "config.yaml")
}

func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sentinel", "behavior.db")
}

// ResolveConfig layers file, env and CLI values over the defaults and
// validates the result.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:          path,
		DBPath:              ResolvedValue{Value: DefaultDBPath(), Source: SourceDefault, From: "built-in default"},
		Classifier:          ResolvedValue{Value: ClassifierHeuristic, Source: SourceDefault, From: "built-in default"},
		EmergencyTrustFloor: DefaultEmergencyTrustFloor,
		Standard:            rank.StandardWeights(),
		Emergency:           rank.EmergencyWeights(),
		Tiers:               trust.DefaultTiers(),
		Behavior:            behavior.DefaultConfig(),
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.CorpusPath, cfg.CorpusPath, SourceConfig, path)
		apply(&out.Classifier, cfg.Classifier, SourceConfig, path)
		apply(&out.ModelPath, cfg.Embedder.ModelPath, SourceConfig, path)
		apply(&out.TokenizerPath, cfg.Embedder.TokenizerPath, SourceConfig, path)

		if cfg.EmergencyTrustFloor != nil {
			out.EmergencyTrustFloor = *cfg.EmergencyTrustFloor
		}
		if cfg.Weights.Standard != nil {
			out.Standard = *cfg.Weights.Standard
		}
		if cfg.Weights.Emergency != nil {
			out.Emergency = *cfg.Weights.Emergency
		}
		if len(cfg.TrustTiers.Official)+len(cfg.TrustTiers.Verified)+len(cfg.TrustTiers.SemiTrusted) > 0 {
			out.Tiers = cfg.TrustTiers
		}
		if len(cfg.EmergencyKeywords) > 0 {
			out.EmergencyKeywords = cfg.EmergencyKeywords
		}
		if cfg.Behavior.DwellThresholdSeconds > 0 {
			out.Behavior.DwellThreshold = time.Duration(cfg.Behavior.DwellThresholdSeconds * float64(time.Second))
		}
		if cfg.Behavior.PenaltyStep > 0 {
			out.Behavior.PenaltyStep = cfg.Behavior.PenaltyStep
		}
		if cfg.Behavior.RewardStep > 0 {
			out.Behavior.RewardStep = cfg.Behavior.RewardStep
		}
		if cfg.Behavior.RetentionHours > 0 {
			out.Behavior.Retention = time.Duration(cfg.Behavior.RetentionHours * float64(time.Hour))
		}
	}

	applyEnv(&out.DBPath, "SENTINEL_DB")
	applyEnv(&out.DBPath, "SENTINEL_DB_PATH")
	applyEnv(&out.CorpusPath, "SENTINEL_CORPUS")
	applyEnv(&out.Classifier, "SENTINEL_CLASSIFIER")
	applyEnv(&out.ModelPath, "SENTINEL_MODEL")
	applyEnv(&out.TokenizerPath, "SENTINEL_TOKENIZER")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.CorpusPath, opts.CLICorpus, SourceCLI, "--corpus")
	apply(&out.Classifier, opts.CLIClassifier, SourceCLI, "--classifier")

	out.DBPath.Value = expandUserPath(out.DBPath.Value)
	out.CorpusPath.Value = expandUserPath(out.CorpusPath.Value)
	out.ModelPath.Value = expandUserPath(out.ModelPath.Value)
	out.TokenizerPath.Value = expandUserPath(out.TokenizerPath.Value)

	if err := out.validate(); err != nil {
		return out, err
	}
	return out, nil
}

func (r ResolvedConfig) validate() error {
	switch r.Classifier.Value {
	case ClassifierHeuristic, ClassifierBayes:
	default:
		return fmt.Errorf("classifier %q: want %q or %q (from %s)",
			r.Classifier.Value, ClassifierHeuristic, ClassifierBayes, r.Classifier.From)
	}
	if err := r.Standard.Validate(); err != nil {
		return fmt.Errorf("standard weights: %w", err)
	}
	if err := r.Emergency.Validate(); err != nil {
		return fmt.Errorf("emergency weights: %w", err)
	}
	if r.EmergencyTrustFloor < 0 || r.EmergencyTrustFloor > 1 {
		return fmt.Errorf("emergency_trust_floor %v outside [0,1]", r.EmergencyTrustFloor)
	}
	return nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

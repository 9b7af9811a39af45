package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by LOANCOUNCIL_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("LOANCOUNCIL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	return APIKeyFor(LLMProvider())
}

// APIKeyFor returns the API key for the named provider.
func APIKeyFor(provider string) string {
	switch provider {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// APIKeys returns the accepted API keys. An empty list disables auth.
func APIKeys() []string {
	var keys []string
	for _, k := range strings.Split(os.Getenv("API_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// DecisionRuleset returns the rule table revision.
// Defaults to "zero-violation-approve".
func DecisionRuleset() domain.Ruleset {
	r := os.Getenv("DECISION_RULESET")
	if !domain.ValidRuleset(r) {
		return domain.RulesetZeroViolationApprove
	}
	return domain.Ruleset(r)
}

// InstitutionCriterion returns how F3 is judged. Defaults to "tier".
func InstitutionCriterion() domain.InstitutionCriterion {
	c := os.Getenv("INSTITUTION_CRITERION")
	if !domain.ValidInstitutionCriterion(c) {
		return domain.InstitutionByTier
	}
	return domain.InstitutionCriterion(c)
}

// GPAPassThreshold returns the normalized GPA needed for F2.
// Defaults to 0.65 if not set or outside (0, 1].
func GPAPassThreshold() float64 {
	v, err := strconv.ParseFloat(os.Getenv("GPA_PASS_THRESHOLD"), 64)
	if err != nil || v <= 0 || v > 1 {
		return domain.DefaultGPAPassThreshold
	}
	return v
}

// FeatureSource returns how the aggregator resolves features.
// Defaults to "debate".
func FeatureSource() domain.FeatureSourceMode {
	m := os.Getenv("FEATURE_SOURCE")
	if !domain.ValidFeatureSourceMode(m) {
		return domain.FeatureSourceDebate
	}
	return domain.FeatureSourceMode(m)
}

func Policy() domain.Policy {
	return domain.Policy{
		Ruleset:              DecisionRuleset(),
		InstitutionCriterion: InstitutionCriterion(),
		GPAPassThreshold:     GPAPassThreshold(),
		FeatureSource:        FeatureSource(),
	}
}

// RoundTimeout bounds each deliberation round. Defaults to 45s.
func RoundTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("ROUND_TIMEOUT"))
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}

// CompletionMaxTokens defaults to 512.
func CompletionMaxTokens() int {
	n, err := strconv.Atoi(os.Getenv("COMPLETION_MAX_TOKENS"))
	if err != nil || n <= 0 {
		return 512
	}
	return n
}

// DeliberationRetention is how long stored deliberations are kept.
// Zero (the default) keeps them forever.
func DeliberationRetention() time.Duration {
	d, err := time.ParseDuration(os.Getenv("DELIBERATION_RETENTION"))
	if err != nil || d < 0 {
		return 0
	}
	return d
}

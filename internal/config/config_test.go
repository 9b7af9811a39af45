package config

import (
	"testing"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{
		"SERVER_PORT", "LLM_PROVIDER", "API_KEYS", "DECISION_RULESET", "INSTITUTION_CRITERION",
		"GPA_PASS_THRESHOLD", "FEATURE_SOURCE", "ROUND_TIMEOUT", "COMPLETION_MAX_TOKENS",
		"DELIBERATION_RETENTION", "MIGRATIONS_PATH",
	} {
		t.Setenv(k, "")
	}

	assert.Equal(t, ":8080", ServerAddr())
	assert.Equal(t, "openai", LLMProvider())
	assert.Empty(t, APIKeys())
	assert.Equal(t, domain.DefaultPolicy(), Policy())
	assert.Equal(t, 45*time.Second, RoundTimeout())
	assert.Equal(t, 512, CompletionMaxTokens())
	assert.Zero(t, DeliberationRetention())
	assert.Equal(t, "migrations", MigrationsPath())
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("DECISION_RULESET", "strict-passed-count")
	t.Setenv("INSTITUTION_CRITERION", "public")
	t.Setenv("GPA_PASS_THRESHOLD", "0.7")
	t.Setenv("FEATURE_SOURCE", "profile")

	assert.Equal(t, domain.Policy{
		Ruleset:              domain.RulesetStrictPassedCount,
		InstitutionCriterion: domain.InstitutionByPublic,
		GPAPassThreshold:     0.7,
		FeatureSource:        domain.FeatureSourceProfile,
	}, Policy())
}

func TestInvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T)
	}{
		{"DECISION_RULESET", "lenient", func(t *testing.T) {
			assert.Equal(t, domain.RulesetZeroViolationApprove, DecisionRuleset())
		}},
		{"GPA_PASS_THRESHOLD", "1.5", func(t *testing.T) {
			assert.Equal(t, domain.DefaultGPAPassThreshold, GPAPassThreshold())
		}},
		{"ROUND_TIMEOUT", "soon", func(t *testing.T) {
			assert.Equal(t, 45*time.Second, RoundTimeout())
		}},
		{"COMPLETION_MAX_TOKENS", "-3", func(t *testing.T) {
			assert.Equal(t, 512, CompletionMaxTokens())
		}},
		{"DELIBERATION_RETENTION", "-1h", func(t *testing.T) {
			assert.Zero(t, DeliberationRetention())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			tt.check(t)
		})
	}
}

func TestAPIKeys(t *testing.T) {
	t.Setenv("API_KEYS", " key-a, ,key-b ")
	assert.Equal(t, []string{"key-a", "key-b"}, APIKeys())
}

func TestLLMAPIKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	assert.Equal(t, "sk-ant", LLMAPIKey())

	t.Setenv("LLM_PROVIDER", "mock")
	assert.Empty(t, LLMAPIKey())
}

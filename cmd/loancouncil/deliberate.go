package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/loancouncil/internal/config"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"github.com/Harshitk-cp/loancouncil/internal/service"
	"github.com/Harshitk-cp/loancouncil/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDeliberateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliberate",
		Short: "Run a full deliberation session and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			profile, err := readProfile(cmd, v)
			if err != nil {
				return err
			}

			provider := v.GetString("provider")
			apiKey := v.GetString("api-key")
			if apiKey == "" {
				apiKey = config.APIKeyFor(provider)
			}
			client, err := llm.NewClient(provider, apiKey)
			if err != nil {
				return fmt.Errorf("completion client: %w", err)
			}

			logger := loggerFrom(v)
			ctx := cmd.Context()

			var ds domain.DeliberationStore
			if dbURL := v.GetString("database-url"); dbURL != "" {
				pool, err := openStore(ctx, dbURL, logger)
				if err != nil {
					return err
				}
				defer pool.Close()
				ds = store.NewDeliberationStore(pool)
			}

			svc := service.NewDeliberationService(ds, client, policyFrom(v), logger)
			svc.SetRoundTimeout(v.GetDuration("round-timeout"))
			svc.SetMaxTokens(v.GetInt("max-tokens"))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if ds != nil {
				d, err := svc.Deliberate(ctx, service.DeliberationRequest{Profile: profile})
				if err != nil {
					return err
				}
				if v.GetBool("record-only") {
					return enc.Encode(d.Record)
				}
				return enc.Encode(d)
			}

			result, err := svc.RunDeliberation(ctx, profile)
			if err != nil {
				return err
			}
			if v.GetBool("record-only") {
				return enc.Encode(result.Record)
			}
			return enc.Encode(result)
		},
	}

	fs := cmd.Flags()
	addProfileFlags(fs)
	addPolicyFlags(fs)
	fs.String("provider", config.LLMProvider(), "completion provider: openai, anthropic, gemini, cerebras or mock")
	fs.String("api-key", "", "provider API key (defaults to the provider's environment variable)")
	fs.Duration("round-timeout", config.RoundTimeout(), "time limit for each deliberation round")
	fs.Int("max-tokens", config.CompletionMaxTokens(), "completion token budget")
	fs.Bool("record-only", false, "print only the decision record")
	fs.String("database-url", "", "store the deliberation in this Postgres database")
	return cmd
}

func openStore(ctx context.Context, dbURL string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := store.Migrate(ctx, pool, config.MigrationsPath(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	return pool, nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Harshitk-cp/loancouncil/internal/config"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "LOANCOUNCIL"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	_ = config.Load()

	rootCmd := &cobra.Command{
		Use:           "loancouncil",
		Short:         "Multi-agent deliberation for student loan applications",
		Long:          "loancouncil runs the academic, financial and critical reviewers over an applicant profile and prints the rule-based decision.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("config", "", "policy file (yaml, toml or json)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log agent activity to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newDeliberateCmd(),
		newExtractCmd(),
	)

	return rootCmd
}

// addPolicyFlags registers the decision policy flags with the current
// environment as their defaults.
func addPolicyFlags(fs *pflag.FlagSet) {
	fs.String("ruleset", string(config.DecisionRuleset()), "decision ruleset: zero-violation-approve or strict-passed-count")
	fs.String("institution-criterion", string(config.InstitutionCriterion()), "F3 criterion: tier or public")
	fs.Float64("gpa-threshold", config.GPAPassThreshold(), "normalized GPA needed to pass F2")
	fs.String("feature-source", string(config.FeatureSource()), "feature resolution: debate or profile")
}

// loadSettings binds cmd's flags, LOANCOUNCIL_* env vars and the optional
// --config file into one viper instance.
func loadSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

func policyFrom(v *viper.Viper) domain.Policy {
	return domain.Policy{
		Ruleset:              domain.Ruleset(v.GetString("ruleset")),
		InstitutionCriterion: domain.InstitutionCriterion(v.GetString("institution-criterion")),
		GPAPassThreshold:     v.GetFloat64("gpa-threshold"),
		FeatureSource:        domain.FeatureSourceMode(v.GetString("feature-source")),
	}.Normalize()
}

func loggerFrom(v *viper.Viper) *zap.Logger {
	if !v.GetBool("verbose") {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// readProfile takes the profile from --profile, or from --file where "-"
// means stdin.
func readProfile(cmd *cobra.Command, v *viper.Viper) (string, error) {
	if p := v.GetString("profile"); p != "" {
		return p, nil
	}
	path := v.GetString("file")
	if path == "" {
		return "", fmt.Errorf("one of --profile or --file is required")
	}

	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}
	return string(b), nil
}

func addProfileFlags(fs *pflag.FlagSet) {
	fs.String("profile", "", "applicant profile text")
	fs.String("file", "", "read the profile from a file, or - for stdin")
}

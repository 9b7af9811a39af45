package main

import (
	"encoding/json"
	"errors"

	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"github.com/Harshitk-cp/loancouncil/internal/service"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the seven features and apply the rule table without model calls",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			profile, err := readProfile(cmd, v)
			if err != nil {
				return err
			}

			svc := service.NewDeliberationService(nil, llm.Unavailable(errors.New("extract makes no completion calls")), policyFrom(v), loggerFrom(v))
			preview, err := svc.PreviewFeatures(profile)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(preview)
		},
	}
	addProfileFlags(cmd.Flags())
	addPolicyFlags(cmd.Flags())
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/workitem-scout/internal/cli"
	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/config"
	"github.com/Veraticus/workitem-scout/internal/llm"
)

func analyzeCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "analyze <id>",
		Short: "Find related items and have an LLM grade them",
		Long: `Run a related-item search, then ask the configured LLM to grade each
result's confidence and relationship type against the source item.

Results the model does not grade keep their heuristic labels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			llmCfg, err := config.LoadLLMConfig(viper.GetViper())
			if err != nil {
				return common.NewUserError("LLM is not configured. Set llm.provider and the provider's API key.", err)
			}
			client, err := newLLMClient(llmCfg)
			if err != nil {
				return fmt.Errorf("failed to create LLM client: %w", err)
			}
			analyzer := llm.NewAnalyzer(client, llmCfg)
			defer analyzer.Close()

			outcomes, err := runSearches(cmd, ids, &flags)
			if err != nil {
				return err
			}
			outcome := outcomes[0]

			adoCfg, err := config.LoadADOConfig(viper.GetViper())
			if err != nil {
				return err
			}
			if len(outcome.Results) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(fmt.Sprintf("%s Asking %s about %d items...", cli.RobotIcon, llmCfg.Provider, len(outcome.Results))))
			}
			graded, err := analyzer.Analyze(cmd.Context(), adoCfg.Project, outcome.Source, outcome.Results)
			if err != nil {
				return err
			}
			outcome.Results = graded

			if flags.jsonOutput {
				return writeOutcomesJSON(cmd.OutOrStdout(), outcomes)
			}
			return cli.RenderResults(cmd.OutOrStdout(), outcome)
		},
	}

	flags.register(cmd)
	return cmd
}

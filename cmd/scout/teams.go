package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/workitem-scout/internal/cli"
	"github.com/Veraticus/workitem-scout/internal/config"
	"github.com/Veraticus/workitem-scout/internal/model"
)

func teamsCmd() *cobra.Command {
	var (
		verifiedOnly bool
		resolve      bool
		mappingPath  string
	)

	cmd := &cobra.Command{
		Use:   "teams",
		Short: "List project teams",
		Long: `List the project's teams, marking those verified in the team mapping.

Area paths come from the mapping; --resolve asks Azure DevOps for the rest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.LoadSearchSettings(viper.GetViper())
			if err != nil {
				return err
			}
			if mappingPath != "" {
				settings.TeamMappingPath = config.ExpandPath(mappingPath)
			}
			mapping := config.LoadTeamMapping(settings.TeamMappingPath)

			source, adoCfg, err := connect()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			infos, err := source.ListTeams(ctx, adoCfg.Project)
			if err != nil {
				return fmt.Errorf("failed to list teams: %w", err)
			}

			teams := make([]model.Team, 0, len(infos))
			for _, info := range infos {
				team := model.Team{Name: info.Name, ID: info.ID}
				entry, mapped := mapping.Mappings[info.Name]
				team.Verified = mapped && entry.Verified
				if path, ok := mapping.AreaPath(info.Name); ok {
					team.AreaPath = path
				} else if resolve {
					path, err := source.GetAreaPath(ctx, adoCfg.Project, info.Name)
					if err != nil {
						slog.Warn("Failed to resolve area path", "team", info.Name, "error", err)
					}
					team.AreaPath = path
				}

				if verifiedOnly && !team.Verified {
					continue
				}
				teams = append(teams, team)
			}
			sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })

			return cli.RenderTeams(cmd.OutOrStdout(), teams)
		},
	}

	cmd.Flags().BoolVar(&verifiedOnly, "verified-only", false, "only list teams verified in the mapping")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "look up unmapped area paths in Azure DevOps")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "path to the team verification mapping JSON")
	return cmd
}

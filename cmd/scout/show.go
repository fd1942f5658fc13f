package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/workitem-scout/internal/cli"
	"github.com/Veraticus/workitem-scout/internal/discovery"
)

func showCmd() *cobra.Command {
	var withLinks bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work item",
		Long:  `Show a work item's fields and the keywords a title-keyword search would use.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			source, adoCfg, err := connect()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			item, err := source.GetByID(ctx, adoCfg.Project, ids[0])
			if err != nil {
				return fmt.Errorf("failed to fetch work item %d: %w", ids[0], err)
			}

			out := cmd.OutOrStdout()
			if err := cli.RenderWorkItem(out, item); err != nil {
				return err
			}

			if discovery.IsMeaningfulTitle(item.Title) {
				keywords := discovery.ExtractKeywords(item.Title, discovery.DefaultKeywordLimit)
				fmt.Fprintln(out, cli.FormatInfo("Title keywords: "+strings.Join(keywords, ", ")))
			} else {
				fmt.Fprintln(out, cli.FormatWarning("Title has no meaningful keywords; specific searches fall back to team batches"))
			}

			if !withLinks {
				return nil
			}
			links, err := source.GetLinks(ctx, adoCfg.Project, item.ID)
			if err != nil {
				return fmt.Errorf("failed to fetch links for %d: %w", item.ID, err)
			}
			if len(links) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No linked work items"))
				return nil
			}
			for _, link := range links {
				fmt.Fprintf(out, "%s #%d  %s\n", cli.LinkIcon, link.TargetID, cli.SubtleStyle.Render(link.Type))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withLinks, "links", false, "also list linked work items")
	return cmd
}

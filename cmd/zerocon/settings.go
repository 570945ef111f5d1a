package main

import (
	"context"
	"fmt"

	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show server settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the server settings",
	Long: `Show the server settings. Table output lists the auth providers,
yaml and json print the whole document, which can be edited and passed
back with apply as a settings kind.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
			if err := c.Settings.Sync(ctx); err != nil {
				return err
			}
			settings := c.Settings.Store().Value()

			if format != outputTable {
				return render(cmd.OutOrStdout(), format, []types.Settings{settings}, table[types.Settings]{})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Elastic address: %s\n\n", orDash(settings.ElasticAddress))
			return render(cmd.OutOrStdout(), format, settings.AuthProviders, providerTable)
		})
	},
}

var providerTable = table[types.Provider]{
	headers: []string{"ID", "TYPE", "LABEL", "DEFAULT ROLES", "AUTO CREATE"},
	row: func(p types.Provider) []string {
		return []string{orDash(p.ID), p.Type, p.Label, join(p.DefaultRoles), fmt.Sprint(p.AutoCreate)}
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion-data",
	Short: "Show the name lookup lists used by the console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
			if err := c.Completion.Sync(ctx); err != nil {
				return err
			}
			v := c.Completion.Store().Value()
			if format != outputTable {
				return render(cmd.OutOrStdout(), format, []types.Completion{v}, table[types.Completion]{})
			}

			rows := []completionRow{
				{"nodes", len(v.Nodes)},
				{"services", len(v.Services)},
				{"certificates", len(v.Certificates)},
				{"authorities", len(v.Authorities)},
				{"policies", len(v.Policies)},
				{"secrets", len(v.Secrets)},
			}
			return render(cmd.OutOrStdout(), format, rows, table[completionRow]{
				headers: []string{"RESOURCE", "ENTRIES"},
				row: func(r completionRow) []string {
					return []string{r.resource, fmt.Sprint(r.entries)}
				},
			})
		})
	},
}

type completionRow struct {
	resource string
	entries  int
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, completionCmd)
}

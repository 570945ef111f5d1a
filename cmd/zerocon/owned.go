package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/cuemby/zerocon/pkg/actions"
	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/spf13/cobra"
)

func ownedCmds() []*cobra.Command {
	return []*cobra.Command{
		ownedCmd("audit", []string{"audits"}, "Browse user audit trails", false,
			func(c *console.Console) *actions.Owned[types.Audit] { return c.Audits },
			auditTable),
		ownedCmd("session", []string{"sessions"}, "Manage user sessions", true,
			func(c *console.Console) *actions.Owned[types.Session] { return c.Sessions },
			table[types.Session]{
				headers: []string{"ID", "STARTED", "LAST ACTIVE", "IP", "LOCATION"},
				row: func(s types.Session) []string {
					ip, location := agentColumns(s.Agent)
					return []string{s.ID, timestamp(s.Timestamp), timestamp(s.LastActive), ip, location}
				},
			}),
		ownedCmd("device", []string{"devices"}, "Manage user devices", true,
			func(c *console.Console) *actions.Owned[types.Device] { return c.Devices },
			table[types.Device]{
				headers: []string{"ID", "NAME", "TYPE", "MODE", "LAST ACTIVE", "DISABLED"},
				row: func(d types.Device) []string {
					return []string{d.ID, d.Name, orDash(d.Type), orDash(d.Mode),
						timestamp(d.LastActive), strconv.FormatBool(d.Disabled)}
				},
			}),
		ownedCmd("sshcertificate", []string{"sshcertificates", "sshcert"}, "Browse SSH certificates issued to users", false,
			func(c *console.Console) *actions.Owned[types.SSHCertificate] { return c.SSHCertificates },
			table[types.SSHCertificate]{
				headers: []string{"ID", "ISSUED", "AUTHORITIES", "PRINCIPALS", "IP"},
				row: func(s types.SSHCertificate) []string {
					var principals []string
					for _, info := range s.CertificatesInfo {
						principals = append(principals, info.Principals...)
					}
					ip, _ := agentColumns(s.Agent)
					return []string{s.ID, timestamp(s.Timestamp), join(s.AuthorityIDs), join(principals), ip}
				},
			}),
	}
}

// ownedCmd builds the list command, and delete when removable, of a
// resource listed per user
func ownedCmd[T types.Entity](name string, aliases []string, short string, removable bool,
	get func(*console.Console) *actions.Owned[T], tbl table[T]) *cobra.Command {

	cmd := &cobra.Command{
		Use:     name,
		Aliases: aliases,
		Short:   short,
	}

	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List the " + name + " entries of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			page, _ := cmd.Flags().GetInt("page")
			if page < 1 {
				return fmt.Errorf("page starts at 1, got %d", page)
			}

			return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
				res := get(c)
				if err := res.Load(ctx, args[0]); err != nil {
					return err
				}
				st := res.Store()
				if page > 1 && st.Paginated() {
					if err := res.Traverse(ctx, page-1); err != nil {
						return err
					}
				}

				if err := render(cmd.OutOrStdout(), format, st.Items(), tbl); err != nil {
					return err
				}
				if st.Paginated() && format == outputTable {
					fmt.Fprintf(os.Stderr, "\npage %d of %d, %d total\n", st.Page()+1, max(st.Pages(), 1), st.Count())
				}
				return nil
			})
		},
	}
	listCmd.Flags().Int("page", 1, "Page to show, for paginated resources")
	cmd.AddCommand(listCmd)

	if removable {
		cmd.AddCommand(&cobra.Command{
			Use:     "delete ID [ID...]",
			Aliases: []string{"rm"},
			Short:   "Delete " + name + " entries",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
					res := get(c)
					for _, id := range args {
						if err := res.Remove(ctx, id); err != nil {
							return err
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d %s\n", len(args), res.Spec().Plural)
					return nil
				})
			},
		})
	}
	return cmd
}

var auditTable = table[types.Audit]{
	headers: []string{"TIMESTAMP", "TYPE", "IP", "LOCATION"},
	row: func(a types.Audit) []string {
		ip, location := agentColumns(a.Agent)
		return []string{timestamp(a.Timestamp), a.Type, ip, location}
	},
}

func agentColumns(a *types.Agent) (ip, location string) {
	ip, location = "-", "-"
	if a != nil {
		ip = orDash(a.IP)
		if a.City != "" {
			location = a.City + ", " + a.CountryCode
		}
	}
	return ip, location
}

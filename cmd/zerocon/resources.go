package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cuemby/zerocon/pkg/action"
	"github.com/cuemby/zerocon/pkg/actions"
	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/spf13/cobra"
)

func resourceCmds() []*cobra.Command {
	return []*cobra.Command{
		collectionCmd("node", []string{"nodes"}, "Manage nodes",
			func(c *console.Console) *actions.Resource[types.Node] { return c.Nodes },
			table[types.Node]{
				headers: []string{"ID", "NAME", "TYPES", "PORT", "REQ/MIN", "LAST SEEN"},
				row: func(n types.Node) []string {
					return []string{n.ID, n.Name, join(n.Types), strconv.Itoa(n.Port),
						strconv.FormatInt(n.RequestsMin, 10), age(n.Timestamp)}
				},
			}),
		collectionCmd("service", []string{"services", "svc"}, "Manage services",
			func(c *console.Console) *actions.Resource[types.Service] { return c.Services },
			table[types.Service]{
				headers: []string{"ID", "NAME", "DOMAINS", "SERVERS", "ROLES"},
				row: func(s types.Service) []string {
					domains := make([]string, len(s.Domains))
					for i, d := range s.Domains {
						domains[i] = d.Domain
					}
					return []string{s.ID, s.Name, join(domains), strconv.Itoa(len(s.Servers)), join(s.Roles)}
				},
			}),
		collectionCmd("certificate", []string{"certificates", "cert"}, "Manage certificates",
			func(c *console.Console) *actions.Resource[types.Certificate] { return c.Certificates },
			table[types.Certificate]{
				headers: []string{"ID", "NAME", "TYPE", "ACME DOMAINS"},
				row: func(c types.Certificate) []string {
					return []string{c.ID, c.Name, orDash(c.Type), join(c.AcmeDomains)}
				},
			}),
		collectionCmd("authority", []string{"authorities"}, "Manage SSH authorities",
			func(c *console.Console) *actions.Resource[types.Authority] { return c.Authorities },
			table[types.Authority]{
				headers: []string{"ID", "NAME", "TYPE", "EXPIRE", "ROLES"},
				row: func(a types.Authority) []string {
					return []string{a.ID, a.Name, orDash(a.Type), strconv.Itoa(a.Expire), join(a.Roles)}
				},
			}),
		collectionCmd("policy", []string{"policies"}, "Manage policies",
			func(c *console.Console) *actions.Resource[types.Policy] { return c.Policies },
			table[types.Policy]{
				headers: []string{"ID", "NAME", "SERVICES", "AUTHORITIES", "RULES"},
				row: func(p types.Policy) []string {
					return []string{p.ID, p.Name, strconv.Itoa(len(p.Services)),
						strconv.Itoa(len(p.Authorities)), strconv.Itoa(len(p.Rules))}
				},
			}),
		withSubcommands(collectionCmd("check", []string{"checks"}, "Manage health checks",
			func(c *console.Console) *actions.Resource[types.Check] { return c.Checks },
			table[types.Check]{
				headers: []string{"ID", "NAME", "TYPE", "FREQUENCY", "TARGETS"},
				row: func(c types.Check) []string {
					return []string{c.ID, c.Name, orDash(c.Type), strconv.Itoa(c.Frequency), join(c.Targets)}
				},
			}), checkProbeCmd),
		collectionCmd("alert", []string{"alerts"}, "Manage alerts",
			func(c *console.Console) *actions.Resource[types.Alert] { return c.Alerts },
			table[types.Alert]{
				headers: []string{"ID", "NAME", "RESOURCE", "LEVEL", "ROLES"},
				row: func(a types.Alert) []string {
					return []string{a.ID, a.Name, orDash(a.Resource), strconv.Itoa(a.Level), join(a.Roles)}
				},
			}),
		collectionCmd("secret", []string{"secrets"}, "Manage provider secrets",
			func(c *console.Console) *actions.Resource[types.Secret] { return c.Secrets },
			table[types.Secret]{
				headers: []string{"ID", "NAME", "TYPE", "REGION"},
				row: func(s types.Secret) []string {
					return []string{s.ID, s.Name, orDash(s.Type), orDash(s.Region)}
				},
			}),
		collectionCmd("log", []string{"logs"}, "Browse server logs",
			func(c *console.Console) *actions.Resource[types.Log] { return c.Logs },
			table[types.Log]{
				headers: []string{"TIMESTAMP", "LEVEL", "MESSAGE"},
				row: func(l types.Log) []string {
					return []string{timestamp(l.Timestamp), l.Level, l.Message}
				},
			}),
	}
}

func withSubcommands(cmd *cobra.Command, subs ...*cobra.Command) *cobra.Command {
	cmd.AddCommand(subs...)
	return cmd
}

// collectionCmd builds the list and delete commands of one collection
func collectionCmd[T types.Entity](name string, aliases []string, short string,
	get func(*console.Console) *actions.Resource[T], tbl table[T]) *cobra.Command {

	cmd := &cobra.Command{
		Use:     name,
		Aliases: aliases,
		Short:   short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List " + name + " entries",
		Example: fmt.Sprintf(`  zerocon %[1]s list
  zerocon %[1]s list --filter name=web --page 2 -o yaml`, name),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			page, _ := cmd.Flags().GetInt("page")
			if page < 1 {
				return fmt.Errorf("page starts at 1, got %d", page)
			}
			pairs, _ := cmd.Flags().GetStringArray("filter")
			filter, err := parseFilter(pairs)
			if err != nil {
				return err
			}

			return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
				res := get(c)
				if err := list(ctx, res, filter, page-1); err != nil {
					return err
				}

				st := res.Store()
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
	listCmd.Flags().StringArray("filter", nil, "Filter as key=value, may be repeated")

	deleteCmd := &cobra.Command{
		Use:     "delete ID [ID...]",
		Aliases: []string{"rm"},
		Short:   "Delete " + name + " entries",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
				res := get(c)
				var err error
				if len(args) == 1 {
					err = res.Remove(ctx, args[0])
				} else {
					err = res.RemoveMulti(ctx, args)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d %s\n", len(args), res.Spec().Plural)
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}

// list loads page of the resource. A filter is applied first because
// the page is clamped against the filtered count.
func list[T types.Entity](ctx context.Context, res *actions.Resource[T], filter action.Filter, page int) error {
	var err error
	if filter != nil {
		err = res.Filter(ctx, filter)
	} else {
		err = res.Sync(ctx)
	}
	if err != nil {
		return err
	}
	if page > 0 && res.Store().Paginated() {
		return res.Traverse(ctx, page)
	}
	return nil
}

// parseFilter turns key=value pairs into a filter. No pairs gives nil so
// the server sees no filter at all.
func parseFilter(pairs []string) (action.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	f := make(action.Filter, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("filter %q is not key=value", p)
		}
		f[key] = value
	}
	return f, nil
}

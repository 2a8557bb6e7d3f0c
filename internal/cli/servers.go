package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

func (a *app) serversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage n8n servers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			servers, err := a.servers.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, srv := range servers {
				srv.APIKey = ""
			}
			return a.emit(cmd, servers, func(w *tabwriter.Writer) {
				header(w, "ID\tNAME\tURL\tDEFAULT\tSTATUS\tLAST PING")
				for _, srv := range servers {
					def := ""
					if srv.IsDefault {
						def = "*"
					}
					ping := "-"
					if srv.LastPing != nil {
						ping = srv.LastPing.Local().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", srv.ID, srv.Name, srv.URL, def, srv.Status, ping)
				}
			})
		},
	}

	var (
		apiKey    string
		isDefault bool
	)
	add := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add an n8n server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := &models.Server{Name: args[0], URL: args[1], APIKey: apiKey, IsDefault: isDefault}
			if err := a.servers.Add(cmd.Context(), srv); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Added server %d (%s)", srv.ID, srv.Name))
			return nil
		},
	}
	add.Flags().StringVar(&apiKey, "api-key", "", "n8n API key")
	add.Flags().BoolVar(&isDefault, "default", false, "make this the default server")

	def := &cobra.Command{
		Use:   "default <server-id>",
		Short: "Make a server the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "server")
			if err != nil {
				return err
			}
			if err := a.servers.SetDefault(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Server %d is now the default", id))
			return nil
		},
	}

	ping := &cobra.Command{
		Use:   "ping <server-id>",
		Short: "Check that a server answers with its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "server")
			if err != nil {
				return err
			}
			res, err := a.servers.Ping(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			if res.Status == models.ServerStatusOnline {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Server %d is %s", id, res.Status))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Sprintf("Server %d is %s: %s", id, res.Status, res.Detail))
			return nil
		},
	}

	remove := &cobra.Command{
		Use:     "remove <server-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "server")
			if err != nil {
				return err
			}
			if err := a.servers.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Removed server %d", id))
			return nil
		},
	}

	cmd.AddCommand(list, add, def, ping, remove)
	return cmd
}

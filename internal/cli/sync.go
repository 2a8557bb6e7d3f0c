package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

func (a *app) pushCmd() *cobra.Command {
	var serverID int64
	cmd := &cobra.Command{
		Use:   "push <workflow-id>",
		Short: "Create or update a workflow on an n8n server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			res, err := a.sync.Push(cmd.Context(), id, serverID)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			verb := "Updated"
			if res.Created {
				verb = "Created"
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("%s workflow %d on server %d as %s", verb, res.WorkflowID, res.ServerID, res.RemoteID))
			return nil
		},
	}
	cmd.Flags().Int64Var(&serverID, "server", 0, "target server (default: the linked or default server)")
	return cmd
}

func (a *app) pullCmd() *cobra.Command {
	var serverID int64
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Import every workflow of an n8n server",
		Long:  "Import every workflow of an n8n server. Workflows whose content is already stored are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.sync.Pull(cmd.Context(), serverID)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Pulled from server %d: %s", res.ServerID, res.Summary()))
			return nil
		},
	}
	cmd.Flags().Int64Var(&serverID, "server", 0, "source server (default: the default server)")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		workflowID int64
		serverID   int64
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the sync history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.store.ListSyncHistory(cmd.Context(), models.SyncFilter{
				WorkflowID: optionalID(workflowID),
				ServerID:   optionalID(serverID),
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, entries, func(w *tabwriter.Writer) {
				header(w, "WHEN\tDIRECTION\tSTATUS\tWORKFLOW\tSERVER\tDETAILS")
				for _, e := range entries {
					wf := "-"
					if e.WorkflowID != nil {
						wf = fmt.Sprint(*e.WorkflowID)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
						e.SyncedAt.Local().Format("2006-01-02 15:04:05"), e.Direction, e.Status, wf, e.ServerID, e.Details)
				}
			})
		},
	}
	cmd.Flags().Int64Var(&workflowID, "workflow", 0, "only entries for this workflow")
	cmd.Flags().Int64Var(&serverID, "server", 0, "only entries for this server")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	return cmd
}

func (a *app) versionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Manage workflow version snapshots",
	}

	list := &cobra.Command{
		Use:   "list <workflow-id>",
		Short: "List the snapshots of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			versions, err := a.workflows.ListVersions(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(cmd, versions, func(w *tabwriter.Writer) {
				header(w, "VERSION\tCREATED\tHASH\tNOTE")
				for _, v := range versions {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
						v.VersionNumber, v.CreatedAt.Local().Format("2006-01-02 15:04"), shortHash(v.ContentHash), orDash(v.ChangeNote))
				}
			})
		},
	}

	var note string
	add := &cobra.Command{
		Use:   "add <workflow-id>",
		Short: "Snapshot the current document of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			v, err := a.workflows.AddVersion(cmd.Context(), id, note)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Saved version %d of workflow %d", v.VersionNumber, id))
			return nil
		},
	}
	add.Flags().StringVarP(&note, "note", "m", "", "change note")

	restore := &cobra.Command{
		Use:   "restore <workflow-id> <version>",
		Short: "Replace a workflow's document with a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			number, err := parseID(args[1], "version")
			if err != nil {
				return err
			}
			wf, err := a.workflows.RestoreVersion(cmd.Context(), id, int(number))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Restored workflow %d to version %d (%s)", wf.ID, number, shortHash(wf.ContentHash)))
			return nil
		},
	}

	cmd.AddCommand(list, add, restore)
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/export"
	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

func (a *app) listCmd() *cobra.Command {
	var (
		source   string
		serverID int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workflows, err := a.workflows.List(cmd.Context(), models.WorkflowFilter{
				ServerID: optionalID(serverID),
				Source:   models.Source(source),
			})
			if err != nil {
				return err
			}
			if len(workflows) == 0 && !a.jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Sprint("No workflows stored"))
				return nil
			}
			return a.emit(cmd, workflows, func(w *tabwriter.Writer) {
				header(w, "ID\tNAME\tNODES\tTRIGGER\tSOURCE\tACTIVE\tN8N ID")
				for _, wf := range workflows {
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%t\t%s\n",
						wf.ID, wf.Name, wf.NodeCount, orDash(wf.TriggerType), wf.Source, wf.Active, orDash(wf.RemoteID))
				}
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only workflows from this source (local, import, pull, template, api, api-build)")
	cmd.Flags().Int64Var(&serverID, "server", 0, "only workflows linked to this server")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an n8n workflow JSON file",
		Long:  "Import an n8n workflow JSON document. Use - to read from standard input. Documents already stored are rejected.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			wf, err := a.workflows.Import(cmd.Context(), doc, name)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), wf)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Imported workflow %d (%s, %d nodes)", wf.ID, wf.Name, wf.NodeCount))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name to use when the document has none")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		format string
		output string
		all    string
	)
	cmd := &cobra.Command{
		Use:   "export [workflow-id]",
		Short: "Export a workflow as JSON or Markdown",
		Long: `Export one workflow to standard output or a file, or every workflow
into a directory with --all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all != "" {
				paths, err := a.workflows.ExportAll(ctx, all)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Exported %d workflows to %s", len(paths), all))
				return nil
			}
			if len(args) == 0 {
				return apperr.InvalidInput("a workflow id or --all is required")
			}
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			body, err := a.workflows.Export(ctx, id, f)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Sprintf("Wrote %s", output))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatJSON), "output format (json or markdown)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&all, "all", "", "export every workflow as JSON into this directory")
	return cmd
}

func (a *app) graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <workflow-id>",
		Short: "Print the display graph of a workflow as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			g, err := a.workflows.Graph(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), g)
		},
	}
}

func (a *app) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <workflow-id>",
		Short: "Register a workflow in the toolchain database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workflow")
			if err != nil {
				return err
			}
			name, err := a.workflows.Register(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Registered workflow %d as %s", id, name))
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.workflows.Status(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, boldStyle.Sprint("n8n Workflow Manager"))
			fmt.Fprintf(out, "  Workflows: %d\n", st.Workflows)
			fmt.Fprintf(out, "  Servers:   %d\n", st.Servers)
			fmt.Fprintf(out, "  Templates: %d\n", st.Templates)
			if st.DefaultServer == nil {
				fmt.Fprintf(out, "  Default:   %s\n", warnStyle.Sprint("none"))
				return nil
			}
			fmt.Fprintf(out, "  Default:   %s (%s, %s)\n", st.DefaultServer.Name, st.DefaultServer.URL, st.DefaultServer.Status)
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"store": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cfg.Auth.ClientSecret != "" {
				cfg.Auth.ClientSecret = "***"
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.InvalidInput("read %s: %v", path, err)
	}
	return body, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

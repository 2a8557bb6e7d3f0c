package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

func (a *app) templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage workflow templates",
	}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := a.templates.List(cmd.Context(), category)
			if err != nil {
				return err
			}
			return a.emit(cmd, templates, func(w *tabwriter.Writer) {
				header(w, "ID\tNAME\tCATEGORY\tPLACEHOLDERS")
				for _, tpl := range templates {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", tpl.ID, tpl.Name, tpl.Category, orDash(strings.Join(tpl.Placeholders, ", ")))
				}
			})
		},
	}
	list.Flags().StringVar(&category, "category", "", "only templates in this category")

	var description, addCategory string
	add := &cobra.Command{
		Use:   "add <name> <file|->",
		Short: "Store a template document with {{key}} placeholders",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			tpl := &models.Template{Name: args[0], Description: description, Category: addCategory, Document: string(body)}
			if err := a.templates.Create(cmd.Context(), tpl); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Added template %d with placeholders [%s]", tpl.ID, strings.Join(tpl.Placeholders, ", ")))
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "template description")
	add.Flags().StringVar(&addCategory, "category", "", "template category (default: general)")

	var values map[string]string
	instantiate := &cobra.Command{
		Use:     "instantiate <template-id>",
		Short:   "Create a workflow from a template",
		Example: `  n8nmgr templates instantiate 1 --set name=Orders --set webhook_path=orders`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template")
			if err != nil {
				return err
			}
			wf, err := a.templates.Instantiate(cmd.Context(), id, values)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), wf)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Created workflow %d (%s) from template %d", wf.ID, wf.Name, id))
			return nil
		},
	}
	instantiate.Flags().StringToStringVar(&values, "set", nil, "placeholder value as key=value, repeatable")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the built-in templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := a.templates.SeedBuiltins(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("Added %d built-in templates", added))
			return nil
		},
	}

	cmd.AddCommand(list, add, instantiate, seedCmd)
	return cmd
}

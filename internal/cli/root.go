// Package cli implements the n8nmgr command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lukisch/n8n-workflow-manager/internal/apperr"
	"github.com/lukisch/n8n-workflow-manager/internal/config"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/internal/services"
	"github.com/lukisch/n8n-workflow-manager/internal/toolchain"
)

var (
	boldStyle    = color.New(color.Bold)
	successStyle = color.New(color.FgGreen)
	warnStyle    = color.New(color.FgYellow)
	// ErrorStyle renders fatal errors in main.
	ErrorStyle = color.New(color.FgRed)
)

// app carries the state shared by every command of one invocation.
type app struct {
	cfgFile string
	dbPath  string
	jsonOut bool
	verbose bool

	cfg       *config.Config
	store     repository.Repository
	workflows *services.WorkflowService
	sync      *services.SyncService
	servers   *services.ServerService
	templates *services.TemplateService
}

// Execute runs the command line with args and closes the store afterwards,
// also when the command fails.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	defer func() {
		if a.store != nil {
			a.store.Close()
		}
	}()
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "n8nmgr",
		Short: "Manage n8n workflows locally and on remote servers",
		Long: `n8nmgr keeps a local library of n8n workflows, builds new ones from
templates and pushes or pulls them to and from n8n servers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["store"] == "none" {
				return a.loadConfig()
			}
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database file, overrides db.* settings")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log service activity to stderr")

	root.AddCommand(
		a.listCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.pushCmd(),
		a.pullCmd(),
		a.statusCmd(),
		a.graphCmd(),
		a.historyCmd(),
		a.serversCmd(),
		a.templatesCmd(),
		a.versionsCmd(),
		a.registerCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.DB.Driver = "sqlite"
		cfg.DB.Path = a.dbPath
	}
	a.cfg = cfg
	return nil
}

func (a *app) open(cmd *cobra.Command) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	logger := logging.Nop()
	if a.verbose {
		logger = logging.New(cmd.ErrOrStderr(), a.cfg.Log.Level, false)
	}

	store, err := repository.Open(cmd.Context(), repository.Options{
		Driver: a.cfg.DB.Driver,
		Path:   a.cfg.DB.Path,
		DSN:    a.cfg.DB.DSN,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.store = store

	var registrar services.Registrar
	if a.cfg.Registration.Enabled {
		registrar = toolchain.NewRegistrar(a.cfg.Registration.DBPath)
	}
	clients := services.NewClientFactory(a.cfg.Remote.Timeout)
	a.workflows = services.NewWorkflowService(store, registrar, logger)
	a.sync = services.NewSyncService(store, clients, logger)
	a.sync.SetPageSize(a.cfg.Remote.PageSize)
	a.servers = services.NewServerService(store, clients, logger)
	a.templates = services.NewTemplateService(store, logger)
	return nil
}

// emit prints v as indented JSON when --json is set and calls table otherwise.
func (a *app) emit(cmd *cobra.Command, v any, table func(w *tabwriter.Writer)) error {
	out := cmd.OutOrStdout()
	if a.jsonOut || table == nil {
		return writeJSON(out, v)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}

// header writes a tab separated column row. It stays uncolored so the
// escape codes do not skew the column widths.
func header(w io.Writer, cols string) {
	fmt.Fprintln(w, cols)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.InvalidInput("invalid %s id %q", what, arg)
	}
	return id, nil
}

// optionalID returns nil for a flag left at zero.
func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

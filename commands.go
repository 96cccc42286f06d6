package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harrisonrobin/notask/pkg/auth"
	"github.com/harrisonrobin/notask/pkg/colors"
	"github.com/harrisonrobin/notask/pkg/config"
	"github.com/harrisonrobin/notask/pkg/google"
	"github.com/harrisonrobin/notask/pkg/index"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
	"github.com/harrisonrobin/notask/pkg/overdue"
	"github.com/harrisonrobin/notask/pkg/pipeline"
)

// errReported marks a failure already written to stdout.
var errReported = errors.New("reported")

type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	stdout  io.Writer
	stderr  io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "notask",
		Short: "Upcoming Notion tasks as JSON",
		Long: `notask reads the first Notion database the integration can see, keeps
the rows due from now on and prints them as typed tasks. It can also
mirror those tasks into a Google Calendar.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/notask/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default is ./.env)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(a.tasksCmd(), a.databasesCmd(), a.calendarCmd())
	return root
}

// load reads the configuration once and sets up logging.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	if err := config.Init(a.v, a.cfgFile, a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	lvl, _ := cfg.LogLevel()
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: lvl}))
	a.cfg = cfg
	return nil
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	key, err := a.cfg.RequireAPIKey()
	if err != nil {
		return nil, err
	}
	client := notion.NewClient(key,
		notion.WithBaseURL(a.cfg.Notion.BaseURL),
		notion.WithVersion(a.cfg.Notion.Version),
		notion.WithLogger(a.logger),
	)
	p := a.cfg.Properties
	return pipeline.New(client, pipeline.Config{
		Properties: pipeline.Properties{
			Name:    p.Name,
			DueDate: p.DueDate,
			Status:  p.Status,
			Class:   p.Class,
			Type:    p.Type,
		},
		PageSize: a.cfg.Query.PageSize,
	}, a.logger), nil
}

func (a *app) tasks(ctx context.Context) ([]model.Task, error) {
	p, err := a.pipeline()
	if err != nil {
		return nil, err
	}
	return p.Tasks(ctx)
}

func (a *app) tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Print upcoming tasks as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.tasks(cmd.Context())
			if tasks == nil {
				tasks = []model.Task{}
			}
			return writeResult(a.stdout, tasks, err)
		},
	}
}

func (a *app) databasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "Print the databases the integration can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return writeResult(a.stdout, nil, err)
			}
			dbs, err := p.Orchestrator().Databases(cmd.Context())
			return writeResult(a.stdout, dbs, err)
		},
	}
}

func (a *app) calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Mirror upcoming tasks into Google Calendar",
	}

	var calendarName string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Create or update one event per upcoming task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.syncCalendar(cmd.Context(), calendarName)
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, report)
		},
	}
	syncCmd.Flags().StringVar(&calendarName, "calendar", "", "calendar to sync with (overrides calendar.name)")

	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize notask with Google, replacing any saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			flow := auth.NewFlow(config.Dir(), a.logger)
			if err := flow.Reset(); err != nil {
				return err
			}
			if _, err := flow.Client(cmd.Context(), auth.CalendarScopes); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintln(a.stderr, "Authentication successful.")
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Set the default calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.File()
			}
			if err := config.SaveCalendar(path, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Default calendar set to: %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(syncCmd, authCmd, setCmd)
	return cmd
}

func (a *app) syncCalendar(ctx context.Context, calendarName string) (google.SyncReport, error) {
	tasks, err := a.tasks(ctx)
	if err != nil {
		return google.SyncReport{}, err
	}
	if calendarName == "" {
		calendarName = a.cfg.Calendar.Name
	}

	dir := config.Dir()
	idx, err := index.NewEventIndex(dir)
	if err != nil {
		return google.SyncReport{}, err
	}
	table, err := overdue.NewTable(dir)
	if err != nil {
		return google.SyncReport{}, err
	}
	cache, err := colors.NewColorCache(dir)
	if err != nil {
		return google.SyncReport{}, err
	}

	client, err := google.NewClient(ctx, auth.NewFlow(dir, a.logger), calendarName, idx, a.logger)
	if err != nil {
		return google.SyncReport{}, err
	}

	m := &google.Mirror{
		Calendar: client,
		Index:    idx,
		Overdue:  table,
		Colors:   cache,
		Now:      time.Now,
		Logger:   a.logger,
	}
	return m.Sync(ctx, tasks)
}

// writeResult prints v as JSON, or err's message as a JSON string. Nothing of
// v is written when err is set.
func writeResult(w io.Writer, v any, err error) error {
	if err != nil {
		if werr := writeJSON(w, err.Error()); werr != nil {
			return errors.Join(err, werr)
		}
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return writeJSON(w, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"notelaunch/internal/cli"
	"notelaunch/internal/config"
	"notelaunch/internal/db"
	"notelaunch/internal/domain"
	"notelaunch/internal/history"
	"notelaunch/internal/launch"
	"notelaunch/internal/logging"
	"notelaunch/internal/prefs"
	"notelaunch/internal/tooling"
	"notelaunch/internal/watch"
)

// buildMeta holds version and build metadata (injectable via ldflags).
type buildMeta struct {
	Version string
	GoOS    string
	GoArch  string
}

func newBuildMeta(version, goos, goarch string) buildMeta {
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	return buildMeta{Version: version, GoOS: goos, GoArch: goarch}
}

func (m buildMeta) String() string {
	return fmt.Sprintf("notelaunch %s %s/%s", m.Version, m.GoOS, m.GoArch)
}

func newRootCommand(bm buildMeta) *cobra.Command {
	root := &cobra.Command{
		Use:           "notelaunch",
		Short:         "Open exported scores in external notation editors",
		Long:          "notelaunch keeps a table of external notation editors and opens exported MusicXML files in them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), bm.String())
				return nil
			}
			return cmd.Help()
		},
	}
	root.Flags().BoolP("version", "V", false, "print version and build metadata")
	root.PersistentFlags().String("config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured tools in menu order",
		Args:  cobra.NoArgs,
		RunE:  runList,
	})

	root.AddCommand(&cobra.Command{
		Use:   "args <tool> <export-file>",
		Short: "Print the command line a tool would be launched with",
		Args:  cobra.ExactArgs(2),
		RunE:  runArgs,
	})

	openCmd := &cobra.Command{
		Use:   "open <export-file>",
		Short: "Open an exported score in a tool (the default tool unless --tool is given)",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpen,
	}
	openCmd.Flags().String("tool", "", "tool title (case-insensitive)")
	openCmd.Flags().Bool("dry-run", false, "print the command line instead of launching")
	root.AddCommand(openCmd)

	defaultCmd := &cobra.Command{Use: "default", Short: "Get or set the default tool"}
	defaultCmd.AddCommand(
		&cobra.Command{Use: "get", Short: "Print the default tool", Args: cobra.NoArgs, RunE: runDefaultGet},
		&cobra.Command{Use: "set <tool>", Short: "Set the default tool", Args: cobra.ExactArgs(1), RunE: runDefaultSet},
	)
	root.AddCommand(defaultCmd)

	prefsCmd := &cobra.Command{Use: "prefs", Short: "Get or set user preferences (defaultTool, exportDir)"}
	prefsCmd.AddCommand(
		&cobra.Command{Use: "get <key>", Short: "Print a preference value", Args: cobra.ExactArgs(1), RunE: runPrefsGet},
		&cobra.Command{Use: "set <key> <value>", Short: "Set a preference value", Args: cobra.ExactArgs(2), RunE: runPrefsSet},
	)
	root.AddCommand(prefsCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launches",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "number of launches to show")
	root.AddCommand(historyCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check the config, tool executables, and default tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")
			opts := cli.CheckOptions{Fix: fix}
			opts.PrefsPath, opts.PrefsPathErr = prefs.ConfigPath()
			code := cli.RunCheck(configPath(cmd), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != 0 {
				return exitCodeErr(code)
			}
			return nil
		},
	}
	checkCmd.Flags().Bool("fix", false, "write default config if missing")
	root.AddCommand(checkCmd)

	root.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the config JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.Schema())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print the tool menu whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, watchShutdownCh)
		},
	})

	return root
}

func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return config.PathFromEnv()
}

// toolTable is what most commands need: the config, its registry, the
// user's prefs, and a logger built from the config.
type toolTable struct {
	cfg    *domain.Config
	reg    *tooling.Registry
	prefs  *prefs.Manager
	logger *slog.Logger
}

func loadToolTable(cmd *cobra.Command) (*toolTable, error) {
	cfg, _, err := config.LoadOrDefault(configPath(cmd))
	if err != nil {
		return nil, err
	}
	reg, err := tooling.NewRegistry(cfg.Tools...)
	if err != nil {
		return nil, err
	}
	prefsPath, err := prefs.ConfigPath()
	if err != nil {
		return nil, err
	}
	m := prefs.NewManager(prefsPath)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return &toolTable{
		cfg:    cfg,
		reg:    reg,
		prefs:  m,
		logger: logging.New(cfg.Infra, cmd.ErrOrStderr()),
	}, nil
}

// defaultTitle resolves the default tool. A preference naming a tool that
// has left the table is reported as tooling.ErrUnknownTool.
func (t *toolTable) defaultTitle() (string, error) {
	d, err := launch.ResolveDefault(t.reg, t.prefs.Prefs().DefaultTool, t.cfg)
	if err != nil {
		return "", err
	}
	return d.Title, nil
}

// menuDefault is defaultTitle for menus: no default marks nothing, a stale
// one marks nothing and is logged.
func (t *toolTable) menuDefault() string {
	name, err := t.defaultTitle()
	if err != nil && !errors.Is(err, launch.ErrNoDefaultTool) {
		t.logger.Warn("default tool does not resolve", "error", err)
	}
	return name
}

// noDefaultHint tells the user how to set a default tool. Other errors pass
// through.
func noDefaultHint(err error) error {
	if !errors.Is(err, launch.ErrNoDefaultTool) {
		return err
	}
	return fmt.Errorf("%w; pass --tool or run \"notelaunch default set <tool>\"", err)
}

func printMenu(w io.Writer, reg *tooling.Registry, defaultTitle string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range reg.List() {
		mark := " "
		if d.Title == defaultTitle {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", mark, d.Title, d.Tooltip, d.ExecutablePath)
	}
	tw.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	if t.reg.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tools configured")
		return nil
	}
	printMenu(cmd.OutOrStdout(), t.reg, t.menuDefault())
	return nil
}

func runArgs(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	d, err := t.reg.Get(args[0])
	if err != nil {
		return err
	}
	for _, a := range d.BuildArguments(args[1]) {
		fmt.Fprintln(cmd.OutOrStdout(), a)
	}
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	exportPath := t.prefs.Prefs().ResolveExport(args[0])
	toolName, _ := cmd.Flags().GetString("tool")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	opts := []launch.Option{launch.WithLogger(t.logger)}
	if !dryRun && t.cfg.History.DBURL != "" {
		store, err := openHistory(cmd.Context(), t.cfg.History.DBURL)
		if err != nil {
			// History is a convenience; a broken DB must not block launching.
			t.logger.Warn("launch history unavailable", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, launch.WithHistory(store))
		}
	}
	l := launch.New(t.cfg, opts...)
	defer l.Close()

	if dryRun {
		var d domain.Descriptor
		if toolName != "" {
			d, err = t.reg.Get(toolName)
		} else {
			d, err = launch.ResolveDefault(t.reg, t.prefs.Prefs().DefaultTool, t.cfg)
		}
		if errors.Is(err, launch.ErrNoDefaultTool) {
			t.logger.Warn("no default tool defined")
		}
		if err != nil {
			return noDefaultHint(err)
		}
		for _, a := range l.DryRun(d, exportPath) {
			fmt.Fprintln(cmd.OutOrStdout(), a)
		}
		return nil
	}

	var out *launch.Outcome
	if toolName != "" {
		var d domain.Descriptor
		if d, err = t.reg.Get(toolName); err != nil {
			return err
		}
		out, err = l.Open(cmd.Context(), d, exportPath)
	} else {
		// OpenDefault logs the missing-default warning itself.
		out, err = l.OpenDefault(cmd.Context(), t.reg, t.prefs.Prefs().DefaultTool, exportPath)
	}
	if err != nil {
		return noDefaultHint(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s exited after %s\n", out.Tool, out.Duration.Round(time.Millisecond))
	return nil
}

// openHistory connects to dbURL and prepares the launch-history store.
func openHistory(ctx context.Context, dbURL string) (*history.Store, error) {
	conn, err := db.Connect(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	store, err := history.NewStore(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

func runDefaultGet(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	name, err := t.defaultTitle()
	if err != nil {
		if errors.Is(err, launch.ErrNoDefaultTool) {
			t.logger.Warn("no default tool defined")
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), name)
	return nil
}

func runDefaultSet(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	d, err := t.reg.Get(args[0])
	if err != nil {
		return err
	}
	// Store the table's spelling so menus mark it consistently.
	if err := t.prefs.SetPreference("defaultTool", d.Title); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func runPrefsGet(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	value, err := t.prefs.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if strings.EqualFold(key, "defaultTool") {
		// Same validation as "default set".
		return runDefaultSet(cmd, []string{value})
	}
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	if err := t.prefs.SetPreference(key, value); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	if t.cfg.History.DBURL == "" {
		return errors.New("launch history is disabled; set history.dbUrl in the config")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	store, err := openHistory(cmd.Context(), t.cfg.History.DBURL)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, r := range recs {
		status := fmt.Sprintf("exit %d", r.ExitCode)
		if r.Error != "" {
			status = r.Error
		}
		var file string
		if len(r.Argv) > 1 {
			file = strings.Join(r.Argv[1:], " ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.StartedAt.Local().Format(time.DateTime), r.Tool, file, status)
	}
	return tw.Flush()
}

func runWatch(cmd *cobra.Command, shutdownCh <-chan struct{}) error {
	t, err := loadToolTable(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printMenu(out, t.reg, t.menuDefault())

	w := watch.NewConfigWatcher(configPath(cmd), t.logger)
	err = w.Start(func(s watch.Snapshot) {
		next := &toolTable{cfg: s.Config, reg: s.Registry, prefs: t.prefs, logger: t.logger}
		fmt.Fprintln(out, "--")
		printMenu(out, s.Registry, next.menuDefault())
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	if shutdownCh != nil {
		<-shutdownCh
		return nil
	}
	waitForShutdownSignal()
	return nil
}

func waitForShutdownSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals()...)
	defer signal.Stop(ch)
	<-ch
}

func getVersion() string {
	if version != "" {
		return version
	}
	b, err := os.ReadFile("VERSION")
	if err != nil {
		return "dev"
	}
	return strings.TrimSpace(string(b))
}

// version is set at build time via ldflags for build metadata, e.g.:
//	go build -ldflags "-X main.version=0.3.0" -o notelaunch ./cmd/notelaunch
var version string

// watchShutdownCh is set by tests to end the watch command without signals. Production leaves it nil.
var watchShutdownCh <-chan struct{}

// stderr is where runApp reports errors; tests may capture it.
var stderr io.Writer = os.Stderr

// exitCodeErr carries an exit code for the process. When returned from a command, runApp exits with that code.
type exitCodeErr int

func (e exitCodeErr) Error() string { return fmt.Sprintf("exit %d", int(e)) }
func (e exitCodeErr) ExitCode() int { return int(e) }

// runApp runs the root command with the given args and returns the exit code.
// An editor that exits non-zero passes its status through.
func runApp(args []string) int {
	bm := newBuildMeta(version, "", "")
	if bm.Version == "" {
		bm.Version = getVersion()
	}
	root := newRootCommand(bm)
	root.SetArgs(args[1:])
	if err := root.Execute(); err != nil {
		var code exitCodeErr
		if errors.As(err, &code) {
			return int(code)
		}
		fmt.Fprintln(stderr, err)
		var ec interface{ ExitCode() int }
		if errors.As(err, &ec) && ec.ExitCode() > 0 {
			return ec.ExitCode()
		}
		return 1
	}
	return 0
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sadopc/pgtop/internal/adapter"
	"github.com/sadopc/pgtop/internal/adapter/postgres"
	"github.com/sadopc/pgtop/internal/app"
	"github.com/sadopc/pgtop/internal/audit"
	"github.com/sadopc/pgtop/internal/bookmarks"
	"github.com/sadopc/pgtop/internal/config"
	"github.com/sadopc/pgtop/internal/logger"
	"github.com/sadopc/pgtop/internal/session"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flags holds the command line connection options.
type flags struct {
	host          string
	port          int
	user          string
	dbname        string
	file          string
	config        string
	forcePassword bool
	noPassword    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pgtop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "pgtop [dbname [username]]",
		Short: "Top-like PostgreSQL statistics monitor",
		Long: `pgtop shows PostgreSQL statistics views as live, sortable tables
with per-second rates, and can signal backends, reset statistics and edit
server configuration from the same screen.

Examples:
  pgtop                               # bookmarks from ~/.pgtoprc, else PG* variables
  pgtop -h db1 -U postgres            # one server
  pgtop -f ./servers.pgtoprc          # one tab per bookmark
  pgtop -h 10.0.0.5 -p 6432 app admin # dbname and user as arguments`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	// -h belongs to --host, as in the PostgreSQL client tools.
	rootCmd.Flags().Bool("help", false, "help for pgtop")
	rootCmd.Flags().StringVarP(&f.host, "host", "h", "", "database server host or socket directory")
	rootCmd.Flags().IntVarP(&f.port, "port", "p", 0, "database server port")
	rootCmd.Flags().StringVarP(&f.user, "username", "U", "", "database user name")
	rootCmd.Flags().StringVarP(&f.dbname, "dbname", "d", "", "database name")
	rootCmd.Flags().StringVarP(&f.file, "file", "f", "", "bookmarks file (default ~/.pgtoprc)")
	rootCmd.Flags().StringVarP(&f.config, "config", "c", "", "config file path")
	rootCmd.Flags().BoolVarP(&f.forcePassword, "password", "W", false, "prompt for a password before connecting")
	rootCmd.Flags().BoolVarP(&f.noPassword, "no-password", "w", false, "never prompt for a password")
	rootCmd.MarkFlagsMutuallyExclusive("password", "no-password")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pgtop %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})
	rootCmd.AddCommand(newInitConfigCmd())
	return rootCmd
}

func newInitConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func run(cmd *cobra.Command, f flags, args []string) error {
	if len(args) > 0 {
		f.dbname = args[0]
	}
	if len(args) > 1 {
		f.user = args[1]
	}
	if cmd.Flags().Changed("port") && !validPort(f.port) {
		return fmt.Errorf("invalid port %d", f.port)
	}

	cfg, err := loadConfig(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if logger.Enabled(cfg.DebugLog != "") {
		if path, err := cfg.DebugLogPath(); err == nil {
			lf, err := logger.Open(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not open debug log: %v\n", err)
			} else {
				defer lf.Close()
				logger.SetDefault(lf.Logger)
			}
		}
	}
	log := logger.Default()

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		path, err := cfg.AuditPath()
		if err == nil {
			auditLog, err = audit.New(path, cfg.Audit.MaxSizeMB)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open audit log: %v\n", err)
		}
	}
	defer auditLog.Close()

	bmPath, err := bookmarksPath(f.file, cfg.Bookmarks)
	if err != nil {
		return err
	}
	marks, err := bookmarks.Read(bmPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if f.file != "" {
			return err
		}
	default:
		// A malformed file is reported and the command line or environment
		// is used instead.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		marks = nil
	}

	tabs, err := startupTabs(cmd, f, marks)
	if err != nil {
		return err
	}
	if f.forcePassword {
		pw, err := readPassword()
		if err != nil {
			return err
		}
		for i := range tabs {
			if tabs[i].Password == "" {
				tabs[i].Password = pw
			}
		}
	}

	log.Info("starting", slog.String("version", version), slog.Int("tabs", len(tabs)))

	model := app.New(cfg, app.Options{
		Dialer:        postgres.Dialer{ConnectTimeout: 10 * time.Second},
		Tabs:          tabs,
		Bookmarks:     marks,
		BookmarksPath: bmPath,
		NoPassword:    f.noPassword,
		Logger:        log,
		Audit:         auditLog,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running application: %w", err)
	}

	m, ok := final.(app.Model)
	if !ok {
		return nil
	}
	m.Controller().Close()
	return m.Err()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// bookmarksPath picks -f, then the config file setting, then ~/.pgtoprc.
func bookmarksPath(flagPath, configured string) (string, error) {
	switch {
	case flagPath != "":
		return flagPath, nil
	case configured != "":
		return configured, nil
	}
	return bookmarks.DefaultPath()
}

// startupTabs returns the connections to open. Explicit flags win, then
// bookmarks, then the PG* environment variables.
func startupTabs(cmd *cobra.Command, f flags, marks []adapter.Params) ([]adapter.Params, error) {
	explicit := f.host != "" || f.user != "" || f.dbname != "" || cmd.Flags().Changed("port")
	if explicit {
		return []adapter.Params{{Host: f.host, Port: f.port, User: f.user, DBName: f.dbname}}, nil
	}
	if len(marks) > 0 {
		if len(marks) > session.MaxTabs {
			fmt.Fprintf(os.Stderr, "Warning: only the first %d bookmarks are opened\n", session.MaxTabs)
			marks = marks[:session.MaxTabs]
		}
		return append([]adapter.Params(nil), marks...), nil
	}
	p, err := envParams()
	if err != nil {
		return nil, err
	}
	return []adapter.Params{p}, nil
}

func envParams() (adapter.Params, error) {
	p := adapter.Params{
		Host:     os.Getenv("PGHOST"),
		User:     os.Getenv("PGUSER"),
		DBName:   os.Getenv("PGDATABASE"),
		Password: os.Getenv("PGPASSWORD"),
	}
	if s := os.Getenv("PGPORT"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || !validPort(n) {
			return adapter.Params{}, fmt.Errorf("invalid PGPORT %q", s)
		}
		p.Port = n
	}
	return p, nil
}

func validPort(n int) bool {
	return n > 0 && n <= 65535
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("-W needs a terminal to read the password from")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fentz26/tasklet/internal/audit"
	"github.com/fentz26/tasklet/internal/config"
	"github.com/fentz26/tasklet/internal/logging"
	"github.com/fentz26/tasklet/internal/store"
	"github.com/fentz26/tasklet/internal/todo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env holds what every subcommand needs once the root pre-run has finished.
type env struct {
	v   *viper.Viper
	cfg config.Config

	tasks   *todo.Store
	db      *store.Store // nil for the file driver
	closers []io.Closer
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
	e.closers = nil
}

func newEnv() *env {
	return &env{v: viper.New()}
}

// newRootCmd builds the command tree around e. The caller closes e once
// Execute returns, whether or not the command failed.
func newRootCmd(e *env) *cobra.Command {
	var (
		cfgFile string
		envFile string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:           "tasklet",
		Short:         "tasklet - a to-do list with subtasks",
		Long:          `tasklet keeps an ordered to-do list where tasks can have subtasks. Run it without arguments for the interactive TUI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.v, cfgFile, envFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Log.Level = "debug"
			}
			e.cfg = cfg
			if err := logging.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if !needsStore(cmd) {
				return nil
			}
			return e.open(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file with TASKLET_* overrides")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.String("driver", "", "storage driver (sqlite or file)")
	flags.String("db", "", "storage path (database or JSON file)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	for key, name := range map[string]string{
		"storage.driver": "driver",
		"storage.path":   "db",
		"log.level":      "log-level",
	} {
		if err := e.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s flag: %v", name, err))
		}
	}

	cmd.AddCommand(
		addCmd(e),
		listCmd(e),
		showCmd(e),
		doneCmd(e),
		editCmd(e),
		rmCmd(e),
		mvCmd(e),
		subCmd(e),
		clearCmd(e),
		exportCmd(e),
		importCmd(e),
		historyCmd(e),
		configCmd(e),
		tuiCmd(e),
		versionCmd(),
	)
	return cmd
}

const noStoreAnnotation = "tasklet/no-store"

func needsStore(cmd *cobra.Command) bool {
	_, skip := cmd.Annotations[noStoreAnnotation]
	return !skip
}

// open wires the configured persistence backend into a task store.
func (e *env) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path := e.cfg.StoragePath()

	var (
		persister todo.Persister
		opts      []todo.Option
	)
	switch e.cfg.Storage.Driver {
	case config.DriverFile:
		fs, err := store.NewFile(path)
		if err != nil {
			return err
		}
		persister = fs
		e.closers = append(e.closers, fs)
	case config.DriverSQLite, "":
		db, err := store.New(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		e.db = db
		persister = db
		e.closers = append(e.closers, db)
		opts = append(opts, todo.WithRecorder(audit.NewJournal(db)))
	default:
		return fmt.Errorf("unknown storage driver %q", e.cfg.Storage.Driver)
	}

	tasks, err := todo.Open(ctx, persister, opts...)
	if err != nil {
		e.close()
		return err
	}
	e.tasks = tasks
	log.Debug().Str("driver", e.cfg.Storage.Driver).Str("path", path).Msg("storage opened")
	return nil
}

var errNoJournal = errors.New("history requires the sqlite storage driver")

func isInteractive(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

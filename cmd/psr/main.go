package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zulandar/parsinator/internal/config"
	"github.com/zulandar/parsinator/internal/fileio"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "psr",
		Short:         "Parsinator: turn project briefs into ordered tasks",
		Long:          "Parsinator parses markdown project briefs into a dependency-ordered tasks.json.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(cmd.ErrOrStderr(), logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newTemplatesCmd())
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newOrderCmd())
	cmd.AddCommand(newUnlockedCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newHistoryCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "psr %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// configureLogging points the global zerolog logger at w, using the
// console format when w is a terminal. An empty level means info.
func configureLogging(w io.Writer, level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	if isTerminal(w) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadConfig reads the config file and, unless --log-level was given,
// applies its log level.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("log-level") {
		if err := configureLogging(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func workingFiles() (*fileio.Handler, error) {
	return fileio.New(".")
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		printError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zulandar/parsinator/internal/config"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func newWatchCmd() *cobra.Command {
	var (
		opts     generateOptions
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate tasks on a schedule while briefs change",
		Long: `Checks the brief directory on a cron schedule and regenerates the tasks file
whenever a brief was added, removed or modified. Runs until interrupted.

Each regeneration starts from --existing (or nothing), never from the
previous output, so --existing must differ from --output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, schedule)
		},
	}

	addGenerateFlags(cmd, &opts)
	cmd.Flags().StringVar(&schedule, "schedule", "*/5 * * * *", "5-field cron expression for checks")
	return cmd
}

func runWatch(cmd *cobra.Command, opts generateOptions, schedule string) error {
	if opts.dir == "" {
		return fmt.Errorf("watch requires --dir")
	}
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	cfg, err := loadConfig(cmd, opts.configPath)
	if err != nil {
		return err
	}
	opts.thresholdSet = cmd.Flags().Changed("threshold")
	opts.resolve(cfg)
	if opts.existing != "" && opts.existing == opts.output {
		return fmt.Errorf("watch cannot extend its own output %s", opts.output)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	w := &watcher{cmd: cmd, cfg: cfg, opts: opts}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s on schedule %q... (Ctrl+C to stop)\n", opts.dir, schedule)
	if _, err := w.check(); err != nil {
		return err
	}

	for {
		timer := time.NewTimer(time.Until(sched.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
			return nil
		case <-timer.C:
			if _, err := w.check(); err != nil {
				printError(cmd.ErrOrStderr(), err)
			}
		}
	}
}

// watcher regenerates the tasks file when the briefs in a directory change.
type watcher struct {
	cmd  *cobra.Command
	cfg  *config.Config
	opts generateOptions

	fingerprint string
}

// check regenerates when the brief fingerprint moved since the last
// successful run and reports whether it did.
func (w *watcher) check() (bool, error) {
	fp, err := briefFingerprint(w.opts.dir)
	if err != nil {
		return false, err
	}
	if fp == w.fingerprint {
		log.Debug().Str("dir", w.opts.dir).Msg("briefs unchanged")
		return false, nil
	}
	if _, err := runGeneration(w.cmd, w.cfg, w.opts, nil, nil); err != nil {
		return false, err
	}
	w.fingerprint = fp
	return true, nil
}

// briefFingerprint hashes the name, size and modification time of every
// brief in dir.
func briefFingerprint(dir string) (string, error) {
	files, err := workingFiles()
	if err != nil {
		return "", err
	}
	paths, err := files.FindBriefs(dir)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tcasvoice/internal/advisory"
	"tcasvoice/internal/app"
	"tcasvoice/internal/audio/wav"
	"tcasvoice/internal/config"
	logx "tcasvoice/pkg/logx"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tcasvoice",
	Short: "TCAS resolution advisory voice playback",
	Long: `tcasvoice loads the recorded TCAS advisory call-outs and plays the most
recently requested one on a fixed tick, muting every call-out while the
host system is unpowered.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tcasvoice", version)
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List the advisory messages and their sound files",
	Run: func(cmd *cobra.Command, args []string) {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tFILE")
		for _, m := range advisory.All() {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", int(m), m, m.File())
		}
		_ = tw.Flush()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the advisory daemon",
	Long: `Run loads the config, initializes the advisory scheduler and reads advisory
requests from stdin, one message name, file name or id per line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := app.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := a.Start(ctx); err != nil {
			return err
		}

		go readRequests(a, cmd.InOrStdin())

		select {
		case <-ctx.Done():
		case <-a.Done():
		}
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := a.Stop(stopCtx); err != nil {
			return err
		}
		return a.Err()
	},
}

var playCmd = &cobra.Command{
	Use:   "play MESSAGE",
	Short: "Play a single advisory and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sounds, _ := cmd.Flags().GetString("sounds")
		output, _ := cmd.Flags().GetString("output")
		level, _ := cmd.Flags().GetString("log-level")

		m, err := advisory.ParseMessage(args[0])
		if err != nil {
			return err
		}
		clip, err := wav.Load(filepath.Join(sounds, m.File()))
		if err != nil {
			return err
		}

		cfg := config.Default()
		cfg.Logging.Level = level
		cfg.Sounds.Dir = sounds
		cfg.Output = config.OutputConfig{Path: output, Realtime: true}

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		if err := a.Start(cmd.Context()); err != nil {
			return err
		}
		a.Scheduler().Request(m)

		wait, err := playWait(cfg, clip)
		if err != nil {
			return err
		}
		select {
		case <-time.After(wait):
		case <-cmd.Context().Done():
		}
		return a.Stop(context.Background())
	},
}

// playWait is how long play keeps the daemon up: one tick to dispatch,
// the clip itself, and a tick of slack.
func playWait(cfg *config.Config, clip *wav.Clip) (time.Duration, error) {
	interval, err := cfg.TickInterval()
	if err != nil {
		return 0, err
	}
	return 2*interval + clip.Duration(), nil
}

func readRequests(a *app.App, in io.Reader) {
	log := a.Logger().With(logx.String("comp", "stdin"))
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m, err := a.Request(line)
		if err != nil {
			log.Warn("ignoring request", logx.String("line", line), logx.Err(err))
			continue
		}
		log.Debug("advisory requested", logx.String("msg", m.String()))
	}
}

func init() {
	runCmd.Flags().String("config", "./config.yaml", "path to config file (json or yaml)")

	playCmd.Flags().String("sounds", "./sounds", "directory holding the advisory wav files")
	playCmd.Flags().String("output", "-", `PCM sink: "-" for stdout, "none", or a file path`)
	playCmd.Flags().String("log-level", "warn", "log level")

	rootCmd.AddCommand(runCmd, playCmd, messagesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

// cli holds state shared by every subcommand
type cli struct {
	configPath string
	verbose    bool

	app *app
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "missionctl",
		Short:         "Daily missions from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", DefaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(loginCmd(c))
	rootCmd.AddCommand(profileCmd(c))
	rootCmd.AddCommand(logoutCmd(c))
	rootCmd.AddCommand(statusCmd(c))
	rootCmd.AddCommand(startCmd(c))
	rootCmd.AddCommand(completeCmd(c))
	rootCmd.AddCommand(abandonCmd(c))
	rootCmd.AddCommand(badgesCmd(c))
	rootCmd.AddCommand(rewardsCmd(c))

	return rootCmd
}

func (c *cli) setup() error {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	c.app, err = newApp(cfg, logger)
	return err
}

func (c *cli) close() {
	if c.app != nil {
		c.app.close()
	}
}

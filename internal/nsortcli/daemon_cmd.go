package nsortcli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notesort/internal/logging"
	"notesort/internal/nsortd"
	"notesort/internal/version"
)

// NewDaemonCommand is the root command of the nsortd binary.
func NewDaemonCommand() *cobra.Command {
	var (
		configPath string
		listen     string
		sweep      bool
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:           "nsortd",
		Short:         "Watch a vault and sort documents as they change",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &Options{ConfigPath: configPath}
			if err := opts.Prepare(); err != nil {
				return err
			}
			cfg, path, exists, err := opts.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !exists {
				path = ""
			}
			if listen != "" {
				cfg.Daemon.Listen = listen
			}
			if sweep {
				cfg.Daemon.SweepOnStart = true
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			svc, err := nsortd.New(cfg, path, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := svc.Start(ctx); err != nil {
				if errors.Is(err, syscall.EADDRINUSE) {
					return fmt.Errorf("%w\nTry: --listen 127.0.0.1:0 or change daemon.listen", err)
				}
				return err
			}
			waitErr := svc.Wait()
			if err := svc.Close(); err != nil && waitErr == nil {
				waitErr = err
			}
			return waitErr
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/notesort/config.toml)")
	cmd.Flags().StringVar(&listen, "listen", "", "override daemon.listen")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "sweep the vault once after start")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")
	return cmd
}

package nsortcli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"notesort/internal/config"
	"notesort/internal/nsortd"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteSample(optionsFrom(cmd).ConfigPath, overwrite)
			if err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("%w (use --overwrite to replace it)", err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Wrote sample configuration to %s\n", path)
			_, _ = fmt.Fprintln(out, "Set vault.root before starting nsortd.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing configuration")
	return cmd
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := optionsFrom(cmd).LoadConfig()
			if err != nil {
				return err
			}
			suffix := ""
			if !exists {
				suffix = " (missing)"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", path, suffix)
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the sort options from the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			cfg, path, exists, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmd, cfg)
			}
			out := cmd.OutOrStdout()
			if !exists {
				_, _ = fmt.Fprintf(out, "%s does not exist; showing defaults\n", path)
			}
			_, _ = fmt.Fprintln(out, RenderOptions(cfg.Sort.Options()))
			if missing := cfg.Sort.Missing(); len(missing) > 0 {
				_, _ = fmt.Fprintf(out, "missing: %s\n", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a sort option",
		Long: "Change a sort option. A running nsortd applies and saves the change itself;\n" +
			"otherwise the configuration file is edited directly.\n\nOptions: " +
			strings.Join(config.OptionKeys(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !local {
				err := withClient(cmd, func(c *nsortd.Client) error {
					_, err := c.ConfigSet(key, value)
					return err
				})
				if err == nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (applied by nsortd)\n", key, value)
					return nil
				}
				var rpcErr *nsortd.RPCError
				if errors.As(err, &rpcErr) {
					return err
				}
			}
			return setLocal(cmd, key, value)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "edit the file without contacting nsortd")
	return cmd
}

func setLocal(cmd *cobra.Command, key, value string) error {
	opts := optionsFrom(cmd)
	cfg, path, exists, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s does not exist (create it with 'nsort config init')", path)
	}
	if err := cfg.Sort.SetOption(key, value); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	got, _ := cfg.Sort.GetOption(key)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (saved to %s)\n", strings.ToLower(strings.TrimSpace(key)), got, path)
	return nil
}

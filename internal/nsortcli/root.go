package nsortcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"notesort/internal/nsortd"
	"notesort/internal/version"
)

func NewRootCommand() *cobra.Command {
	opts := newDefaultOptions()
	cmd := &cobra.Command{
		Use:           "nsort",
		Short:         "Sort Markdown notes into folders by a frontmatter flag",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Version = version.String()
	cmd.InitDefaultVersionFlag()
	if f := cmd.Flags().Lookup("version"); f != nil {
		f.Shorthand = "v"
	}

	withOptionsContext(cmd, opts)
	bindFlags(cmd, opts)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if opts := optionsFrom(cmd); opts != nil {
			return opts.Prepare()
		}
		return nil
	}

	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newReclassifyCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newTaskCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newConfigCommand())
	return cmd
}

// withClient dials the daemon for the duration of fn.
func withClient(cmd *cobra.Command, fn func(*nsortd.Client) error) error {
	opts := optionsFrom(cmd)
	if opts == nil {
		return fmt.Errorf("options missing")
	}
	addr, err := opts.DaemonAddr()
	if err != nil {
		return err
	}
	c, err := nsortd.Dial(addr)
	if err != nil {
		return fmt.Errorf("nsortd is not reachable at %s (start it with 'nsortd'): %w", addr, err)
	}
	defer c.Close()
	return fn(c)
}

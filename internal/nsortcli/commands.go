package nsortcli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notesort/internal/model"
	"notesort/internal/nsortd"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *nsortd.Client) error {
				st, err := c.Status()
				if err != nil {
					return err
				}
				if optionsFrom(cmd).JSON {
					return writeJSON(cmd, st)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), RenderStatus(st))
				return nil
			})
		},
	}
}

func newReclassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify PATH...",
		Short: "Reclassify documents now (paths are vault-relative)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *nsortd.Client) error {
				colorize := shouldColorize(cmd)
				var failed []string
				for _, p := range args {
					res, err := c.Reclassify(p)
					if err != nil {
						failed = append(failed, p)
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
						continue
					}
					if optionsFrom(cmd).JSON {
						if err := writeJSON(cmd, res); err != nil {
							return err
						}
						continue
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), RenderMove(res, colorize))
				}
				if len(failed) > 0 {
					return fmt.Errorf("reclassify failed for %s", strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reclassify every document in scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *nsortd.Client) error {
				out, err := c.Sweep()
				if err != nil {
					return err
				}
				if optionsFrom(cmd).JSON {
					return writeJSON(cmd, out)
				}
				_, _ = fmt.Fprint(cmd.OutOrStdout(), RenderSweep(out, shouldColorize(cmd)))
				if len(out.Errors) > 0 {
					return fmt.Errorf("%d documents failed", len(out.Errors))
				}
				return nil
			})
		},
	}
}

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Rebuild the metadata index from disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *nsortd.Client) error {
				stats, err := c.IndexBuild()
				if err != nil {
					return err
				}
				if optionsFrom(cmd).JSON {
					return writeJSON(cmd, stats)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents (%d with frontmatter) in %dms\n",
					stats.Documents, stats.WithHeader, stats.ElapsedMS)
				return nil
			})
		},
	})
	return cmd
}

func newTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task documents (TASK-NNN)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new [TITLE...]",
		Short: "Create the next task document",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return withClient(cmd, func(c *nsortd.Client) error {
				created, err := c.TaskCreate(title)
				if err != nil {
					return err
				}
				if optionsFrom(cmd).JSON {
					return writeJSON(cmd, created)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", created.ID, created.Path)
				return nil
			})
		},
	})

	cmd.AddCommand(newTaskMoveCommand("icebox PATH", "Move a task into the icebox", func(c *nsortd.Client, p string) (model.MoveResult, error) {
		return c.TaskIcebox(p)
	}))
	cmd.AddCommand(newTaskMoveCommand("unbacklog PATH", "Move a task out of the backlog", func(c *nsortd.Client, p string) (model.MoveResult, error) {
		return c.TaskUnbacklog(p)
	}))
	return cmd
}

func newTaskMoveCommand(use, short string, call func(*nsortd.Client, string) (model.MoveResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(c *nsortd.Client) error {
				res, err := call(c, args[0])
				if err != nil {
					return err
				}
				if optionsFrom(cmd).JSON {
					return writeJSON(cmd, res)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), RenderMove(res, shouldColorize(cmd)))
				return nil
			})
		},
	}
}

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent moves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return withClient(cmd, func(c *nsortd.Client) error {
				moves, err := c.History(limit)
				if err != nil {
					return err
				}
				if optionsFrom(cmd).JSON {
					return writeJSON(cmd, moves)
				}
				if len(moves) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no moves recorded")
					return nil
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), RenderHistory(moves))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries (0 for all)")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	app "github.com/okian/detective/internal/app"
	"github.com/okian/detective/internal/domain/types"
)

func newLeaderboardCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show, list and clear leaderboards",
	}

	var limit int
	show := &cobra.Command{
		Use:   "show <game>",
		Short: "Print a game's ranked leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				return printRows(c.OutOrStdout(), svc.TopN(ctx, args[0], limit))
			})
		},
	}
	show.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n rows, 0 for all")

	list := &cobra.Command{
		Use:   "list",
		Short: "List games with a stored leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				for _, g := range svc.Games(ctx) {
					fmt.Fprintln(c.OutOrStdout(), g)
				}
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <game>",
		Short: "Delete a game's leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				svc.ClearLeaderboard(ctx, args[0])
				fmt.Fprintf(c.OutOrStdout(), "cleared %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(show, list, clearCmd)
	return cmd
}

func printRows(w io.Writer, rows []types.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tGROUP\tSCORE\tTIME")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%s\n", r.Rank, r.Name, r.Group, r.Score, r.Time)
	}
	return tw.Flush()
}

func newProgressCmd(opts *options) *cobra.Command {
	var name, group string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show or reset a player's saved progress",
	}
	cmd.PersistentFlags().StringVar(&name, "name", "", "Player name")
	cmd.PersistentFlags().StringVar(&group, "group", "", "Player group")

	show := &cobra.Command{
		Use:   "show <game>",
		Short: "Print saved progress as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				return printJSON(c.OutOrStdout(), svc.LoadProgress(ctx, name, group, args[0]))
			})
		},
	}
	reset := &cobra.Command{
		Use:   "reset <game>",
		Short: "Delete saved progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				svc.ResetProgress(ctx, name, group, args[0])
				fmt.Fprintf(c.OutOrStdout(), "reset %s for %s/%s\n", args[0], name, group)
				return nil
			})
		},
	}
	cmd.AddCommand(show, reset)
	return cmd
}

func newGradeCmd(opts *options) *cobra.Command {
	var expectedPath string
	cmd := &cobra.Command{
		Use:   "grade <file|->",
		Short: "Run a submission and compare its output with the expected lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			code, err := readSource(c.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(expectedPath)
			if err != nil {
				return fmt.Errorf("read expected output: %w", err)
			}
			expected := strings.Split(string(raw), "\n")
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				v := svc.Grade(ctx, code, expected)
				if err := printJSON(c.OutOrStdout(), v); err != nil {
					return err
				}
				if !v.Passed {
					return fmt.Errorf("submission did not pass")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&expectedPath, "expected", "e", "", "File holding the expected output lines")
	_ = cmd.MarkFlagRequired("expected")
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file|->",
		Short: "Run a submission and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			code, err := readSource(c.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				res := svc.Run(ctx, code)
				if !res.OK {
					fmt.Fprintln(c.ErrOrStderr(), res.Err)
					return fmt.Errorf("run failed")
				}
				fmt.Fprint(c.OutOrStdout(), res.Output)
				return nil
			})
		},
	}
}

func newThemeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the persisted theme",
		RunE: func(c *cobra.Command, _ []string) error {
			return withSession(c, opts, func(_ context.Context, svc *app.Service) error {
				return printJSON(c.OutOrStdout(), svc.Theme())
			})
		},
	}
	set := &cobra.Command{
		Use:   "set <dark|light|high-contrast>",
		Short: "Apply a theme mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				return printJSON(c.OutOrStdout(), svc.ApplyTheme(ctx, args[0]))
			})
		},
	}
	toggle := &cobra.Command{
		Use:   "toggle",
		Short: "Flip between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				return printJSON(c.OutOrStdout(), svc.ToggleTheme(ctx))
			})
		},
	}
	contrast := &cobra.Command{
		Use:   "contrast",
		Short: "Flip high contrast",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				return printJSON(c.OutOrStdout(), svc.ToggleContrast(ctx))
			})
		},
	}
	cmd.AddCommand(set, toggle, contrast)
	return cmd
}

func newAttemptsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "attempts",
		Short: "Print the local attempt log as JSON",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withSession(c, opts, func(ctx context.Context, svc *app.Service) error {
				return printJSON(c.OutOrStdout(), svc.Attempts(ctx))
			})
		},
	}
}

// readSource reads code from path, or from in when path is "-".
func readSource(in io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(in)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s1natex/taskboard/internal/board"
	"github.com/s1natex/taskboard/internal/client"
	"github.com/s1natex/taskboard/internal/identity"
)

type options struct {
	apiURL       string
	identityPath string
	userID       string
	verbose      bool
	timeout      time.Duration
}

type session struct {
	board *board.Board
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "board",
		Short:         "Terminal client for the task board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("TASKBOARD_API", "http://localhost:8080/api"), "base URL of the task API")
	root.PersistentFlags().StringVar(&opts.identityPath, "identity", defaultIdentityPath(), "file holding the user_id cookie")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "use this user id instead of the stored one")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP timeout")

	run := func(fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, stderr)
			if err != nil {
				return err
			}
			if err := fn(cmd, s, args); err != nil {
				return err
			}
			s.board.Wait()
			printBoard(stdout, s.board.Columns())
			return nil
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the board",
			Args:  cobra.NoArgs,
			RunE:  run(func(*cobra.Command, *session, []string) error { return nil }),
		},
		&cobra.Command{
			Use:   "add <text>",
			Short: "Add a task to the Tasks column",
			Args:  cobra.MinimumNArgs(1),
			RunE: run(func(_ *cobra.Command, s *session, args []string) error {
				if _, ok := s.board.AddTask(strings.Join(args, " ")); !ok {
					return errors.New("task text is empty")
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "move <task-id> <target-id>",
			Short: "Drag a task onto a column (todo, in-progress, done) or another task",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(_ *cobra.Command, s *session, args []string) error {
				if !s.board.DragStart(args[0]) {
					return fmt.Errorf("task %q not found", args[0])
				}
				s.board.DragOver(args[1])
				if !s.board.DragEnd(args[1]) {
					return fmt.Errorf("nothing to do for drop target %q", args[1])
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "edit <task-id> <text>",
			Short: "Change a task's text",
			Args:  cobra.MinimumNArgs(2),
			RunE: run(func(_ *cobra.Command, s *session, args []string) error {
				if !s.board.EditTask(args[0], strings.Join(args[1:], " ")) {
					return fmt.Errorf("task %q not found", args[0])
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rm <task-id>",
			Short: "Delete a task",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(_ *cobra.Command, s *session, args []string) error {
				if !s.board.RemoveTask(args[0]) {
					return fmt.Errorf("task %q not found", args[0])
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Print the anonymous user id",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				ids, _, err := resolveIdentity(opts, newLogger(stderr, opts.verbose))
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, ids.UserID())
				return nil
			},
		},
	)
	return root
}

func openSession(ctx context.Context, opts *options, stderr io.Writer) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(stderr, opts.verbose)

	ids, jar, err := resolveIdentity(opts, logger)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: opts.timeout, Jar: jar}
	api := client.New(opts.apiURL, ids, client.WithHTTPClient(hc))

	b := board.New(api, logger, board.WithContext(ctx))
	if err := b.Load(ctx); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return &session{board: b}, nil
}

// resolveIdentity returns the --user override, or the cookie-backed
// identifier kept in the identity file.
func resolveIdentity(opts *options, logger *slog.Logger) (identity.Source, http.CookieJar, error) {
	if opts.userID != "" {
		return identity.Static(opts.userID), nil, nil
	}
	jar, err := identity.OpenFileJar(opts.identityPath, logger)
	if err != nil {
		return nil, nil, err
	}
	p, err := identity.NewProvider(jar, opts.apiURL)
	if err != nil {
		return nil, nil, err
	}
	return p, jar, nil
}

func printBoard(w io.Writer, cols []board.Column) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", c.Title, len(c.Tasks))
		for _, t := range c.Tasks {
			fmt.Fprintf(w, "  %s  %s\n", t.ID, t.Content)
		}
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultIdentityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskboard", "identity.yaml")
	}
	return filepath.Join(home, ".taskboard", "identity.yaml")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

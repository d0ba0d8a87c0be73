package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
	"github.com/pders01/headlines/internal/tui"
)

const listDateLayout = "Jan 2, 2006 15:04"

var errCacheDisabled = errors.New("the article cache is disabled (set cache.enabled = true)")

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	if !opts.quiet {
		tui.ShowBanner(Version)
	}
	tui.ApplyTheme(cfg.UI.Colors)

	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	events := tui.NewEvents()
	defer events.Close()

	ctrl, err := rt.controller(events)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := rt.watchShakes(ctx, ctrl, os.Stdin); err != nil {
		return err
	}

	appOpts := []tui.Option{tui.WithContext(ctx)}
	if rt.store != nil {
		appOpts = append(appOpts, tui.WithStore(rt.store))
	}
	app := tui.NewApp(cfg, ctrl, events, appOpts...)

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.Shake.SensorPath == "-" {
		// stdin carries sensor samples, so keys come from the terminal.
		progOpts = append(progOpts, tea.WithInputTTY())
	}

	if _, err := tea.NewProgram(app, progOpts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// withController runs fn against a controller with no UI attached.
func withController(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *runtime, *feed.Controller) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl, err := rt.controller()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	return fn(cmd.Context(), rt, ctrl)
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var path string
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				home, _ := os.UserHomeDir()
				path = filepath.Join(home, ".config", "headlines", "config.toml")
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&path, "path", "p", "", "where to write the file (default ~/.config/headlines/config.toml)")

	configCmd.AddCommand(generateCmd)
	return configCmd
}

func newHeadlinesCmd(opts *rootOptions) *cobra.Command {
	var (
		pages  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "headlines",
		Short: "Print the top headlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, func(ctx context.Context, _ *runtime, ctrl *feed.Controller) error {
				if err := ctrl.LoadInitial(ctx); err != nil {
					return err
				}
				for s := ctrl.State(); s.Page < pages && s.HasMore(); s = ctrl.State() {
					if err := ctrl.LoadMore(ctx); err != nil {
						return err
					}
					if ctrl.State().Page == s.Page {
						break
					}
				}
				return printArticles(cmd.OutOrStdout(), ctrl.State().Items, nil, asJSON)
			})
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "number of pages to fetch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print articles as JSON")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search all news for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withController(cmd, opts, func(ctx context.Context, _ *runtime, ctrl *feed.Controller) error {
				if err := ctrl.Search(ctx, query); err != nil {
					return err
				}
				return printArticles(cmd.OutOrStdout(), ctrl.State().Items, nil, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print articles as JSON")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [query]",
		Short: "List or search articles seen before",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, opts, func(_ context.Context, rt *runtime, _ *feed.Controller) error {
				if rt.store == nil {
					return errCacheDisabled
				}

				var (
					articles []feed.Article
					read     = map[string]bool{}
				)
				if len(args) == 1 {
					if rt.index == nil {
						return errors.New("the search index is unavailable")
					}
					results, err := rt.index.Search(args[0], limit)
					if err != nil {
						return err
					}
					for _, r := range results {
						articles = append(articles, r.Article)
						if stored, err := rt.store.GetArticle(r.Article.URL); err == nil && stored != nil {
							read[r.Article.URL] = stored.Read
						}
					}
				} else {
					stored, err := rt.store.GetArticles(limit)
					if err != nil {
						return err
					}
					for _, s := range stored {
						articles = append(articles, s.Article)
						read[s.URL] = s.Read
					}
				}
				return printArticles(cmd.OutOrStdout(), articles, read, asJSON)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of articles")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print articles as JSON")
	return cmd
}

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop expired responses and old articles from the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, opts, func(_ context.Context, rt *runtime, _ *feed.Controller) error {
				if rt.store == nil {
					return errCacheDisabled
				}
				pages, articles, err := rt.store.Prune(olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d cached responses and %d articles\n", pages, articles)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "drop articles first seen before this age")
	return cmd
}

type articleJSON struct {
	feed.Article
	Read bool `json:"read,omitempty"`
}

// printArticles writes one block per article, or a JSON array. read is
// nil when read state is unknown.
func printArticles(w io.Writer, articles []feed.Article, read map[string]bool, asJSON bool) error {
	if asJSON {
		out := make([]articleJSON, 0, len(articles))
		for _, a := range articles {
			out = append(out, articleJSON{Article: a, Read: read[a.URL]})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles.")
		return nil
	}
	for i, a := range articles {
		marker := ""
		if read != nil && !read[a.URL] {
			marker = "● "
		}
		fmt.Fprintf(w, "%2d. %s%s\n", i+1, marker, a.Title)

		meta := a.SourceName
		if !a.PublishedAt.IsZero() {
			if meta != "" {
				meta += " • "
			}
			meta += a.PublishedAt.Local().Format(listDateLayout)
		}
		if meta != "" {
			fmt.Fprintf(w, "    %s\n", meta)
		}
		fmt.Fprintf(w, "    %s\n", a.URL)
	}
	return nil
}

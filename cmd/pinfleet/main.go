package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/continuity"
	"github.com/install-pinned/pinfleet/internal/docs"
	"github.com/install-pinned/pinfleet/internal/doctor"
	"github.com/install-pinned/pinfleet/internal/fleet"
	"github.com/install-pinned/pinfleet/internal/github"
	"github.com/install-pinned/pinfleet/internal/logger"
	"github.com/install-pinned/pinfleet/internal/profile"
	"github.com/install-pinned/pinfleet/internal/render"
	"github.com/install-pinned/pinfleet/internal/scaffold"
	"github.com/install-pinned/pinfleet/internal/state"
	"github.com/install-pinned/pinfleet/internal/toolspec"
	"github.com/install-pinned/pinfleet/internal/ux"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "pinfleet",
		Usage:       "Keep a fleet of pinned-install GitHub Actions in sync",
		Description: "Run 'pinfleet docs' for documentation on configuration, sync stages and release tags.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.FileName, Usage: "Path to the fleet configuration"},
			&cli.StringFlag{Name: "token", Usage: "GitHub API token", Sources: cli.EnvVars("GITHUB_TOKEN")},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
		},
		Commands: []*cli.Command{
			initCmd(),
			syncCmd(),
			renderCmd(),
			verifyCmd(),
			statusCmd(),
			profileCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

func onlyFlag() cli.Flag {
	return &cli.StringFlag{Name: "only", Usage: "Only repositories matching this glob, e.g. 'flake8-*'"}
}

func syncCmd() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create, regenerate, tag and activate every action repository",
		Flags: []cli.Flag{
			onlyFlag(),
			&cli.BoolFlag{Name: "skip-remote", Usage: "Do not create repositories or update their settings"},
			&cli.BoolFlag{Name: "skip-activate", Usage: "Do not enable or dispatch workflows or check the Marketplace"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Clone and render only; change nothing remotely"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := setupLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := doctor.Preflight("git"); err != nil {
				return err
			}

			opts := fleet.Options{
				Only:         cmd.String("only"),
				SkipRemote:   cmd.Bool("skip-remote"),
				SkipActivate: cmd.Bool("skip-activate"),
				DryRun:       cmd.Bool("dry-run"),
			}
			needsAPI := !opts.DryRun && !(opts.SkipRemote && opts.SkipActivate)
			client, err := newClient(cmd, cfg, log, needsAPI)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			r := &fleet.Runner{
				Config:   cfg,
				Platform: client,
				Options:  opts,
				Logger:   logger.ForComponent(log, "fleet"),
			}
			_, err = r.Run(ctx)
			return err
		},
	}
}

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check which actions are listed on the Marketplace",
		Flags: []cli.Flag{onlyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := setupLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := newClient(cmd, cfg, log, false)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := &fleet.Runner{
				Config:   cfg,
				Platform: client,
				Options:  fleet.Options{Only: cmd.String("only")},
				Logger:   logger.ForComponent(log, "fleet"),
			}
			listings, err := r.Verify(ctx)
			unlisted := 0
			for _, l := range listings {
				if !l.Listed {
					unlisted++
				}
			}
			fmt.Printf("\n%d of %d actions listed\n", len(listings)-unlisted, len(listings))
			return err
		},
	}
}

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Print the files generated for one tool",
		ArgsUsage: "<tool>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "readme", Usage: "Take the release reference from this README"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the files below this directory instead of printing them"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw := cmd.Args().First()
			if raw == "" {
				return fmt.Errorf("tool argument is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			spec, err := toolspec.Parse(raw)
			if err != nil {
				return err
			}

			marker := continuity.Sentinel()
			if p := cmd.String("readme"); p != "" {
				marker = continuity.Load(p)
			}
			files, err := render.Render(spec, marker, cfg)
			if err != nil {
				return err
			}

			if out := cmd.String("output"); out != "" {
				for _, p := range files.Paths() {
					target := filepath.Join(out, filepath.FromSlash(p))
					if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
						return err
					}
					if err := os.WriteFile(target, []byte(files[p]), 0644); err != nil {
						return err
					}
					fmt.Printf("  %s%s%s\n", ux.Cyan, target, ux.Reset)
				}
				return nil
			}
			for _, p := range files.Paths() {
				fmt.Printf("%s==> %s <==%s\n%s\n", ux.Bold, p, ux.Reset, files[p])
			}
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the report of the last sync",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			report, err := state.Load(cfg.StateDir())
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no sync has run yet; run 'pinfleet sync'")
				}
				return fmt.Errorf("loading run report: %w", err)
			}
			ux.RenderStatus(report)
			return nil
		},
	}
}

func profileCmd() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Generate the organisation profile README",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout (e.g. " + profile.Path + ")"},
			&cli.BoolFlag{Name: "html", Usage: "Emit HTML instead of Markdown"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := profile.Render(cfg.Org, cfg.WebURL, cfg.Specs)
			if cmd.Bool("html") {
				if out, err = profile.HTML(out); err != nil {
					return err
				}
			}

			path := cmd.String("output")
			if path == "" {
				fmt.Print(out)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(out), 0644); err != nil {
				return err
			}
			fmt.Printf("%s✓ Wrote %s (%d tools)%s\n", ux.Green, path, len(cfg.Specs), ux.Reset)
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the environment and explain failures of the last sync",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := resolveToken(cmd, cfg)
			if err != nil {
				return err
			}
			report, err := state.Load(cfg.StateDir())
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading run report: %w", err)
			}
			return doctor.Run(cfg, token, report)
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter pinfleet.yaml and tools.json",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "org", Value: "install-pinned", Usage: "Organisation owning the action repositories"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir, cmd.String("org"))
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'pinfleet docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

func setupLogger(cmd *cli.Command) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, err
	}
	cfg := logger.DefaultConfig()
	cfg.Level = level
	cfg.Format = cmd.String("log-format")
	return logger.Init(cfg)
}

// loadConfig loads --config. When the flag was not given, the default
// file name is searched for from the working directory upwards.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if !cmd.IsSet("config") {
		found, err := findConfig(path)
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func findConfig(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found (searched from cwd to root); run 'pinfleet init'", name)
		}
		dir = parent
	}
}

func resolveToken(cmd *cli.Command, cfg *config.Config) (string, error) {
	if token := cmd.String("token"); token != "" {
		return token, nil
	}
	return cfg.Token()
}

func newClient(cmd *cli.Command, cfg *config.Config, log *slog.Logger, requireToken bool) (*github.Client, error) {
	token, err := resolveToken(cmd, cfg)
	if err != nil {
		return nil, err
	}
	if token == "" && requireToken {
		return nil, fmt.Errorf("no GitHub token: pass --token, set GITHUB_TOKEN or configure token-file")
	}
	return github.NewClient(github.Config{
		BaseURL: cfg.APIURL,
		WebURL:  cfg.WebURL,
		Token:   token,
		Logger:  logger.ForComponent(log, "github"),
	})
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"tag-release/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func command() *cli.Command {
	return &cli.Command{
		Name:  "tag-release",
		Usage: "tag the newest CHANGE_LOGS.md version and publish it as a GitHub release",
		Flags: flags(),
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "print the version and notes a release would use, without side effects",
				Flags: flags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					opts, err := options(c)
					if err != nil {
						return err
					}
					return app.Preview(opts, os.Stdout)
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			opts, err := options(c)
			if err != nil {
				return err
			}
			return app.Run(ctx, opts, app.Deps{Out: os.Stdout})
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Usage:   "path to the repository to release",
			Value:   ".",
			Sources: cli.EnvVars("TAG_RELEASE_REPO"),
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to the release configuration (default <repo>/.tag-release.yaml)",
			Sources: cli.EnvVars("TAG_RELEASE_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "changelog",
			Usage:   "changelog file, relative to the repository",
			Sources: cli.EnvVars("TAG_RELEASE_CHANGELOG"),
		},
		&cli.StringSliceFlag{
			Name:    "artifact",
			Usage:   "release artifact to commit and attach (repeatable, replaces the configured list)",
			Sources: cli.EnvVars("TAG_RELEASE_ARTIFACTS"),
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "hosted release backend: gh or github",
			Sources: cli.EnvVars("TAG_RELEASE_BACKEND"),
		},
		&cli.StringFlag{
			Name:    "remote",
			Usage:   "git remote to push to",
			Sources: cli.EnvVars("TAG_RELEASE_REMOTE"),
		},
		&cli.StringFlag{
			Name:    "notes",
			Usage:   "release notes source: body (section text) or full (file start to sentinel)",
			Sources: cli.EnvVars("TAG_RELEASE_NOTES"),
		},
		&cli.BoolFlag{
			Name:    "no-push-branch",
			Usage:   "push only the tag, not the current branch",
			Sources: cli.EnvVars("TAG_RELEASE_NO_PUSH_BRANCH"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log level (debug, info, warn, error)",
			Sources: cli.EnvVars("TAG_RELEASE_LOG_LEVEL"),
		},
	}
}

func options(c *cli.Command) (app.Options, error) {
	return app.OptionsFromFlags(app.FlagValues{
		RepoPath:     c.String("repo"),
		ConfigPath:   c.String("config"),
		Changelog:    c.String("changelog"),
		Artifacts:    c.StringSlice("artifact"),
		ArtifactsSet: c.IsSet("artifact"),
		Backend:      c.String("backend"),
		Remote:       c.String("remote"),
		Notes:        c.String("notes"),
		NoPushBranch: c.Bool("no-push-branch"),
		LogLevel:     c.String("log-level"),
	})
}

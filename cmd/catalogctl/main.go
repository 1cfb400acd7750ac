// Command catalogctl validates and imports the holiday, timeline and scheme
// catalogs, and computes deadlines offline for auditors.
package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("catalogctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "catalogctl",
		Usage: "Manage the reference catalogs behind deadline and eligibility checks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "calendars",
				Usage:   "Directory of jurisdiction calendar files",
				Value:   "./catalog/calendars",
				Sources: cli.EnvVars("CATALOG_CALENDAR_DIR"),
			},
			&cli.StringFlag{
				Name:    "timelines",
				Usage:   "Timeline rules file",
				Value:   "./catalog/timelines.yaml",
				Sources: cli.EnvVars("CATALOG_TIMELINE_FILE"),
			},
			&cli.StringFlag{
				Name:    "schemes",
				Usage:   "Scheme catalog file",
				Value:   "./catalog/schemes.yaml",
				Sources: cli.EnvVars("CATALOG_SCHEME_FILE"),
			},
		},
		Commands: []*cli.Command{
			validateCommand(),
			importCommand(),
			deadlineCommand(),
		},
	}
}

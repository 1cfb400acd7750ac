package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	calendarcatalog "sahayak/internal/calendar/catalog"
	calendarloader "sahayak/internal/calendar/loader"
	calendar "sahayak/internal/calendar/models"
	calendarservice "sahayak/internal/calendar/service"
	calendarstore "sahayak/internal/calendar/store"
	"sahayak/internal/deadline"
	eligibilitycatalog "sahayak/internal/eligibility/catalog"
	eligibility "sahayak/internal/eligibility/models"
	"sahayak/internal/platform/config"
	"sahayak/internal/platform/postgres"
	timelinecatalog "sahayak/internal/timeline/catalog"
	timelineloader "sahayak/internal/timeline/loader"
	timeline "sahayak/internal/timeline/models"
	timelineservice "sahayak/internal/timeline/service"
	timelinestore "sahayak/internal/timeline/store"
	"sahayak/pkg/domain"
)

// catalogs is everything read from the catalog files.
type catalogs struct {
	calendars []calendarloader.Document
	rules     []timeline.Rule
	schemes   []eligibility.SchemeRule
}

func load(cmd *cli.Command) (catalogs, error) {
	var c catalogs
	var err error
	if c.calendars, err = calendarloader.LoadDir(cmd.String("calendars")); err != nil {
		return catalogs{}, err
	}
	if c.rules, err = timelineloader.LoadFile(cmd.String("timelines")); err != nil {
		return catalogs{}, err
	}
	if path := cmd.String("schemes"); path != "" {
		if c.schemes, err = eligibilitycatalog.LoadFile(path); err != nil {
			return catalogs{}, err
		}
	}
	return c, nil
}

// snapshot builds the in-memory calendar catalog the deadline walk runs on.
func (c catalogs) snapshot() (*calendarcatalog.Snapshot, error) {
	var cals []calendar.HolidayCalendar
	profiles := make([]calendar.JurisdictionProfile, 0, len(c.calendars))
	for _, doc := range c.calendars {
		profiles = append(profiles, doc.Profile)
		cals = append(cals, doc.Calendars...)
	}
	return calendarcatalog.New().Replace(cals, profiles)
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Parse every catalog file and report what it contains",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			snap, err := c.snapshot()
			if err != nil {
				return err
			}
			for _, rule := range c.rules {
				if err := rule.ValidateForCatalog(); err != nil {
					return fmt.Errorf("timeline rule %s: %w", rule.Key(), err)
				}
			}
			if _, err := eligibilitycatalog.New().Replace(c.schemes); err != nil {
				return err
			}
			out := cmd.Root().Writer
			fmt.Fprintf(out, "calendars: %d jurisdictions, %d holiday sets\n", len(c.calendars), len(snap.Keys()))
			fmt.Fprintf(out, "timeline rules: %d\n", len(c.rules))
			fmt.Fprintf(out, "schemes: %d\n", len(c.schemes))
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Publish the calendar and timeline catalogs into postgres",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Postgres DSN",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := load(cmd)
			if err != nil {
				return err
			}
			pgCfg := config.FromEnv().Postgres
			pgCfg.DSN = cmd.String("database-url")
			db, err := postgres.Open(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(db); err != nil {
				return err
			}

			calendars := calendarservice.New(calendarcatalog.New(), calendarstore.NewPostgres(db))
			for _, doc := range c.calendars {
				if err := calendarloader.Apply(ctx, calendars, doc); err != nil {
					return err
				}
			}
			rules := timelineservice.New(timelinecatalog.New(), timelinestore.NewPostgres(db))
			if err := rules.Warm(ctx); err != nil {
				return err
			}
			imported := 0
			for _, rule := range c.rules {
				if alreadyRecorded(rules.Snapshot().History(rule.Key()), rule) {
					continue
				}
				if _, err := rules.Publish(ctx, rule); err != nil {
					return fmt.Errorf("timeline rule %s: %w", rule.Key(), err)
				}
				imported++
			}
			fmt.Fprintf(cmd.Root().Writer, "imported %d jurisdictions and %d new timeline rules\n", len(c.calendars), imported)
			return nil
		},
	}
}

func alreadyRecorded(history []timeline.Rule, rule timeline.Rule) bool {
	for _, h := range history {
		if h.SourceVersion == rule.SourceVersion && h.EffectiveFrom.Equal(rule.EffectiveFrom) {
			return true
		}
	}
	return false
}

func deadlineCommand() *cli.Command {
	return &cli.Command{
		Name:      "deadline",
		Usage:     "Compute the deadline and breach verdict for one application",
		ArgsUsage: "SERVICE JURISDICTION SUBMISSION_DATE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "today",
				Usage: "Evaluate as of this date (YYYY-MM-DD); defaults to today in Asia/Kolkata",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 3 {
				return fmt.Errorf("expected SERVICE JURISDICTION SUBMISSION_DATE, got %d arguments", cmd.Args().Len())
			}
			c, err := load(cmd)
			if err != nil {
				return err
			}
			today, err := todayFrom(cmd.String("today"))
			if err != nil {
				return err
			}
			return computeDeadline(cmd.Root().Writer, c, cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2), today)
		},
	}
}

func todayFrom(flag string) (domain.Date, error) {
	if flag != "" {
		return domain.ParseDate(flag)
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return domain.Date{}, err
	}
	return domain.DateIn(time.Now(), loc), nil
}

func computeDeadline(out io.Writer, c catalogs, serviceArg, jurisdictionArg, submittedArg string, today domain.Date) error {
	service, err := domain.ParseServiceID(serviceArg)
	if err != nil {
		return err
	}
	jurisdiction, err := domain.ParseJurisdiction(jurisdictionArg)
	if err != nil {
		return err
	}
	submitted, err := domain.ParseDate(submittedArg)
	if err != nil {
		return err
	}
	snap, err := c.snapshot()
	if err != nil {
		return err
	}
	rules := timelinecatalog.New().Append(c.rules...)
	rule, ok := rules.Current(timeline.Key{Service: service, Jurisdiction: jurisdiction}, submitted)
	if !ok {
		return fmt.Errorf("no timeline rule for %s in %s on %s", service, jurisdiction, submitted)
	}
	due, err := deadline.ComputeDeadline(submitted, rule, jurisdiction, today, snap)
	if err != nil {
		return err
	}
	verdict := deadline.Evaluate(submitted, due, today)
	fmt.Fprintf(out, "rule: %d %s (%s)\n", rule.DurationUnits, rule.Unit, rule.SourceVersion)
	fmt.Fprintf(out, "deadline: %s\n", due)
	if verdict.Breached {
		fmt.Fprintf(out, "status: breached, %d days overdue\n", verdict.OverdueDays)
	} else {
		fmt.Fprintf(out, "status: within time\n")
	}
	return nil
}

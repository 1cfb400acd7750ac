// Package loader reads holiday calendar catalogs from YAML files.
//
// One file describes one jurisdiction:
//
//	jurisdiction: IN-KA
//	parent: IN
//	weekly_rest_day: sunday
//	calendars:
//	  - year: 2024
//	    holidays:
//	      - {date: 2024-01-15, name: Makara Sankranti, kind: regional}
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sahayak/internal/calendar/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/yamlfile"
)

type holidayDoc struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type calendarDoc struct {
	Year     int          `yaml:"year"`
	Holidays []holidayDoc `yaml:"holidays"`
}

type fileDoc struct {
	Jurisdiction  string        `yaml:"jurisdiction"`
	Parent        string        `yaml:"parent"`
	WeeklyRestDay string        `yaml:"weekly_rest_day"`
	Calendars     []calendarDoc `yaml:"calendars"`
}

// Document is a decoded jurisdiction file.
type Document struct {
	Profile   models.JurisdictionProfile
	Calendars []models.HolidayCalendar
}

// Publisher receives the contents of a document.
type Publisher interface {
	Publish(ctx context.Context, cal models.HolidayCalendar) (models.HolidayCalendar, error)
	PublishProfile(ctx context.Context, p models.JurisdictionProfile) error
}

// Parse decodes and validates one jurisdiction document.
func Parse(data []byte) (Document, error) {
	var raw fileDoc
	if err := yamlfile.Decode(data, &raw); err != nil {
		return Document{}, err
	}
	return raw.toDocument()
}

func LoadFile(path string) (Document, error) {
	var raw fileDoc
	if err := yamlfile.Load(path, &raw); err != nil {
		return Document{}, err
	}
	doc, err := raw.toDocument()
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadDir loads every .yaml and .yml file in dir in name order.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read calendar dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isCatalogFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		doc, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Apply publishes the profile first so the calendars are evaluated with it.
func Apply(ctx context.Context, pub Publisher, doc Document) error {
	if err := pub.PublishProfile(ctx, doc.Profile); err != nil {
		return fmt.Errorf("publish profile %s: %w", doc.Profile.Code, err)
	}
	for _, cal := range doc.Calendars {
		if _, err := pub.Publish(ctx, cal); err != nil {
			return fmt.Errorf("publish calendar %s: %w", cal.Key(), err)
		}
	}
	return nil
}

func isCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func (f fileDoc) toDocument() (Document, error) {
	code, err := domain.ParseJurisdiction(f.Jurisdiction)
	if err != nil {
		return Document{}, err
	}
	profile := models.DefaultProfile(code)
	if f.Parent != "" {
		parent, err := domain.ParseJurisdiction(f.Parent)
		if err != nil {
			return Document{}, fmt.Errorf("parent: %w", err)
		}
		profile.Parent = parent
	}
	if f.WeeklyRestDay != "" {
		day, err := models.ParseWeekday(f.WeeklyRestDay)
		if err != nil {
			return Document{}, err
		}
		profile.WeeklyRestDay = day
	}
	if err := profile.Validate(); err != nil {
		return Document{}, err
	}

	doc := Document{Profile: profile}
	seen := make(map[int]struct{}, len(f.Calendars))
	for _, c := range f.Calendars {
		if _, dup := seen[c.Year]; dup {
			return Document{}, fmt.Errorf("year %d listed twice", c.Year)
		}
		seen[c.Year] = struct{}{}

		cal := models.HolidayCalendar{Jurisdiction: code, Year: c.Year}
		for _, h := range c.Holidays {
			date, err := domain.ParseDate(h.Date)
			if err != nil {
				return Document{}, fmt.Errorf("year %d: %w", c.Year, err)
			}
			cal.Holidays = append(cal.Holidays, models.Holiday{
				Date: date,
				Name: h.Name,
				Kind: models.HolidayKind(strings.ToLower(strings.TrimSpace(h.Kind))),
			})
		}
		normalized, err := cal.Normalize()
		if err != nil {
			return Document{}, fmt.Errorf("year %d: %w", c.Year, err)
		}
		doc.Calendars = append(doc.Calendars, normalized)
	}
	return doc, nil
}

// Package loader reads timeline rules from a YAML file:
//
//	rules:
//	  - service: income-certificate
//	    jurisdiction: IN-KA
//	    duration_units: 15
//	    unit: workingDays
//	    effective_from: 2023-04-01
//	    source_version: ka-sakala-2023-04
package loader

import (
	"fmt"

	"sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/yamlfile"
)

type ruleDoc struct {
	Service       string `yaml:"service"`
	Jurisdiction  string `yaml:"jurisdiction"`
	DurationUnits int    `yaml:"duration_units"`
	Unit          string `yaml:"unit"`
	EffectiveFrom string `yaml:"effective_from"`
	SourceVersion string `yaml:"source_version"`
}

type fileDoc struct {
	Rules []ruleDoc `yaml:"rules"`
}

func Parse(data []byte) ([]models.Rule, error) {
	var raw fileDoc
	if err := yamlfile.Decode(data, &raw); err != nil {
		return nil, err
	}
	return raw.toRules()
}

func LoadFile(path string) ([]models.Rule, error) {
	var raw fileDoc
	if err := yamlfile.Load(path, &raw); err != nil {
		return nil, err
	}
	rules, err := raw.toRules()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

func (f fileDoc) toRules() ([]models.Rule, error) {
	rules := make([]models.Rule, 0, len(f.Rules))
	for i, r := range f.Rules {
		service, err := domain.ParseServiceID(r.Service)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		jurisdiction, err := domain.ParseJurisdiction(r.Jurisdiction)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		from, err := domain.ParseDate(r.EffectiveFrom)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rule := models.Rule{
			Service:       service,
			Jurisdiction:  jurisdiction,
			DurationUnits: r.DurationUnits,
			Unit:          models.Unit(r.Unit),
			EffectiveFrom: from,
			SourceVersion: r.SourceVersion,
		}
		if err := rule.ValidateForCatalog(); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

package catalog

import (
	"fmt"

	"sahayak/internal/eligibility/models"
	"sahayak/pkg/domain"
	strs "sahayak/pkg/platform/strings"
	"sahayak/pkg/yamlfile"
)

// File is the on-disk scheme catalog:
//
//	schemes:
//	  - id: raitha-siri
//	    name: Raitha Siri
//	    jurisdiction: IN-KA
//	    min_area: 1.0
//	    allowed_categories: [dry-land]
//	    benefit_amount: 10000
//	    other_conditions: [small_farmer]
type File struct {
	Schemes []models.SchemeRule `yaml:"schemes"`
}

func (f *File) Validate() error {
	for i := range f.Schemes {
		f.Schemes[i].AllowedCategories = strs.Dedupe(f.Schemes[i].AllowedCategories, models.NormalizeCategory)
		f.Schemes[i].OtherConditions = strs.Dedupe(f.Schemes[i].OtherConditions, nil)
		if f.Schemes[i].Jurisdiction == "" {
			continue
		}
		j, err := domain.ParseJurisdiction(string(f.Schemes[i].Jurisdiction))
		if err != nil {
			return fmt.Errorf("schemes[%d]: %w", i, err)
		}
		f.Schemes[i].Jurisdiction = j
	}
	return nil
}

func Parse(data []byte) ([]models.SchemeRule, error) {
	var f File
	if err := yamlfile.Decode(data, &f); err != nil {
		return nil, err
	}
	return f.Schemes, nil
}

func LoadFile(path string) ([]models.SchemeRule, error) {
	var f File
	if err := yamlfile.Load(path, &f); err != nil {
		return nil, err
	}
	return f.Schemes, nil
}

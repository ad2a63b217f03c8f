package smartsheet

import (
	"fmt"
	"regexp"
	"strings"
)

// Formula types supported when creating cross-sheet formulas
const (
	FormulaIndexMatch = "INDEX_MATCH"
	FormulaVLookup    = "VLOOKUP"
	FormulaSumIf      = "SUMIF"
	FormulaCountIf    = "COUNTIF"
	FormulaCustom     = "CUSTOM"
)

// FormulaTypes lists every supported formula type in schema order
var FormulaTypes = []string{FormulaIndexMatch, FormulaVLookup, FormulaSumIf, FormulaCountIf, FormulaCustom}

// referencePattern matches {Reference Name} tokens inside a formula
var referencePattern = regexp.MustCompile(`\{([^{}]+)\}`)

// ExtractReferences returns the distinct cross-sheet reference names used by
// formula, in order of first appearance
func ExtractReferences(formula string) []string {
	matches := referencePattern.FindAllStringSubmatch(formula, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// FormulaConfig describes the formula to generate against another sheet.
// Column fields are titles in the target sheet. LookupValue and Criteria are
// inserted verbatim, so they may be literals ("Done", 42) or cell
// references ([Task]@row).
type FormulaConfig struct {
	Type           string `json:"formula_type"`
	LookupValue    string `json:"lookup_value,omitempty"`
	LookupColumn   string `json:"lookup_column,omitempty"`
	ReturnColumn   string `json:"return_column,omitempty"`
	CriteriaColumn string `json:"criteria_column,omitempty"`
	Criteria       string `json:"criteria,omitempty"`
	SumColumn      string `json:"sum_column,omitempty"`
	CustomFormula  string `json:"custom_formula,omitempty"`
}

// RangeSpec is a cross-sheet reference that must exist for a formula to resolve
type RangeSpec struct {
	Name        string
	StartColumn Column
	EndColumn   Column
}

// FormulaPlan is a generated formula plus the references it depends on
type FormulaPlan struct {
	Formula string
	Ranges  []RangeSpec
}

// BuildFormula generates a formula for cfg. baseName prefixes every reference
// name; columns are the target sheet's columns in sheet order.
func BuildFormula(cfg FormulaConfig, baseName string, columns []Column) (*FormulaPlan, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("target sheet has no columns")
	}

	byTitle := make(map[string]Column, len(columns))
	for _, c := range columns {
		byTitle[c.Title] = c
	}

	column := func(field, title string) (Column, error) {
		if title == "" {
			return Column{}, fmt.Errorf("%s is required for %s", field, cfg.Type)
		}
		c, ok := byTitle[title]
		if !ok {
			return Column{}, fmt.Errorf("%s %q not found in target sheet", field, title)
		}
		return c, nil
	}
	single := func(c Column) RangeSpec {
		return RangeSpec{Name: baseName + " " + c.Title, StartColumn: c, EndColumn: c}
	}

	switch cfg.Type {
	case FormulaIndexMatch:
		if cfg.LookupValue == "" {
			return nil, fmt.Errorf("lookup_value is required for %s", cfg.Type)
		}
		lookup, err := column("lookup_column", cfg.LookupColumn)
		if err != nil {
			return nil, err
		}
		ret, err := column("return_column", cfg.ReturnColumn)
		if err != nil {
			return nil, err
		}
		retRange, lookupRange := single(ret), single(lookup)
		return &FormulaPlan{
			Formula: fmt.Sprintf("=INDEX({%s}, MATCH(%s, {%s}, 0))", retRange.Name, cfg.LookupValue, lookupRange.Name),
			Ranges:  uniqueRanges(retRange, lookupRange),
		}, nil

	case FormulaVLookup:
		if cfg.LookupValue == "" {
			return nil, fmt.Errorf("lookup_value is required for %s", cfg.Type)
		}
		lookup, err := column("lookup_column", cfg.LookupColumn)
		if err != nil {
			return nil, err
		}
		ret, err := column("return_column", cfg.ReturnColumn)
		if err != nil {
			return nil, err
		}
		if ret.Index < lookup.Index {
			return nil, fmt.Errorf("return_column %q must be to the right of lookup_column %q for VLOOKUP", ret.Title, lookup.Title)
		}
		rng := RangeSpec{Name: baseName, StartColumn: lookup, EndColumn: ret}
		return &FormulaPlan{
			Formula: fmt.Sprintf("=VLOOKUP(%s, {%s}, %d, false)", cfg.LookupValue, rng.Name, ret.Index-lookup.Index+1),
			Ranges:  []RangeSpec{rng},
		}, nil

	case FormulaSumIf:
		if cfg.Criteria == "" {
			return nil, fmt.Errorf("criteria is required for %s", cfg.Type)
		}
		crit, err := column("criteria_column", cfg.CriteriaColumn)
		if err != nil {
			return nil, err
		}
		sum, err := column("sum_column", cfg.SumColumn)
		if err != nil {
			return nil, err
		}
		critRange, sumRange := single(crit), single(sum)
		return &FormulaPlan{
			Formula: fmt.Sprintf("=SUMIF({%s}, %s, {%s})", critRange.Name, cfg.Criteria, sumRange.Name),
			Ranges:  uniqueRanges(critRange, sumRange),
		}, nil

	case FormulaCountIf:
		if cfg.Criteria == "" {
			return nil, fmt.Errorf("criteria is required for %s", cfg.Type)
		}
		crit, err := column("criteria_column", cfg.CriteriaColumn)
		if err != nil {
			return nil, err
		}
		critRange := single(crit)
		return &FormulaPlan{
			Formula: fmt.Sprintf("=COUNTIF({%s}, %s)", critRange.Name, cfg.Criteria),
			Ranges:  []RangeSpec{critRange},
		}, nil

	case FormulaCustom:
		formula := strings.TrimSpace(cfg.CustomFormula)
		if formula == "" {
			return nil, fmt.Errorf("custom_formula is required for %s", cfg.Type)
		}
		if !strings.HasPrefix(formula, "=") {
			return nil, fmt.Errorf("custom_formula must start with '='")
		}
		return &FormulaPlan{
			Formula: formula,
			Ranges: []RangeSpec{{
				Name:        baseName,
				StartColumn: columns[0],
				EndColumn:   columns[len(columns)-1],
			}},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported formula_type %q", cfg.Type)
	}
}

// uniqueRanges drops repeats so a formula that names one column twice
// (SUMIF({Amount}, ">100", {Amount})) needs a single reference
func uniqueRanges(ranges ...RangeSpec) []RangeSpec {
	out := make([]RangeSpec, 0, len(ranges))
	seen := make(map[string]bool, len(ranges))
	for _, r := range ranges {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

package tools

import (
	"fmt"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
)

type GetCrossReferencesParams struct {
	SheetID        ID   `json:"sheet_id"`
	IncludeDetails bool `json:"include_details"`
}

func (p *GetCrossReferencesParams) Validate() error { return nil }

type FindSheetReferencesParams struct {
	TargetSheetID ID `json:"target_sheet_id"`
}

func (p *FindSheetReferencesParams) Validate() error { return nil }

type ValidateCrossReferencesParams struct {
	SheetID ID `json:"sheet_id"`
}

func (p *ValidateCrossReferencesParams) Validate() error { return nil }

type CreateCrossReferenceParams struct {
	SheetID       ID                       `json:"sheet_id"`
	TargetSheetID ID                       `json:"target_sheet_id"`
	FormulaConfig smartsheet.FormulaConfig `json:"formula_config"`
	ReferenceName string                   `json:"reference_name,omitempty"`
}

func (p *CreateCrossReferenceParams) Validate() error {
	if p.SheetID == p.TargetSheetID {
		return fmt.Errorf("target_sheet_id must differ from sheet_id")
	}
	return nil
}

// BaseName is the reference name used for the generated ranges
func (p *CreateCrossReferenceParams) BaseName() string {
	if p.ReferenceName != "" {
		return p.ReferenceName
	}
	return fmt.Sprintf("%d Range", p.TargetSheetID)
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"golang.org/x/sync/errgroup"
)

// Cross-sheet reference handlers

// referenceScanConcurrency bounds parallel sheet fetches in find_sheet_references
const referenceScanConcurrency = 4

type FormulaInfo struct {
	RowID      ID       `json:"row_id"`
	RowNumber  int      `json:"row_number"`
	Column     string   `json:"column"`
	Formula    string   `json:"formula"`
	References []string `json:"references"`
}

type CrossReferencesResult struct {
	Success         bool                             `json:"success"`
	SheetID         ID                               `json:"sheet_id"`
	CrossReferences []smartsheet.CrossSheetReference `json:"cross_references"`
	TotalReferences int                              `json:"total_references"`
	Formulas        []FormulaInfo                    `json:"formulas,omitempty"`
}

func HandleGetCrossReferences(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params GetCrossReferencesParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	sheet, err := api.GetSheet(ctx, params.SheetID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}

	result := CrossReferencesResult{
		Success:         true,
		SheetID:         params.SheetID,
		CrossReferences: sheet.CrossSheetReferences,
		TotalReferences: len(sheet.CrossSheetReferences),
	}
	if result.CrossReferences == nil {
		result.CrossReferences = []smartsheet.CrossSheetReference{}
	}
	if params.IncludeDetails {
		result.Formulas = crossSheetFormulas(sheet)
		if result.Formulas == nil {
			result.Formulas = []FormulaInfo{}
		}
	}
	return result, nil
}

// crossSheetFormulas lists every formula cell that uses a {reference}
func crossSheetFormulas(sheet *smartsheet.Sheet) []FormulaInfo {
	titles := make(map[int64]string, len(sheet.Columns))
	for _, c := range sheet.Columns {
		titles[c.ID] = c.Title
	}

	var out []FormulaInfo
	for _, row := range sheet.Rows {
		for _, cell := range row.Cells {
			refs := smartsheet.ExtractReferences(cell.Formula)
			if len(refs) == 0 {
				continue
			}
			out = append(out, FormulaInfo{
				RowID:      ID(row.ID),
				RowNumber:  row.RowNumber,
				Column:     titles[cell.ColumnID],
				Formula:    cell.Formula,
				References: refs,
			})
		}
	}
	return out
}

type ReferencingSheet struct {
	SheetID    ID       `json:"sheet_id"`
	SheetName  string   `json:"sheet_name"`
	References []string `json:"references"`
}

type FindReferencesResult struct {
	Success           bool               `json:"success"`
	TargetSheetID     ID                 `json:"target_sheet_id"`
	ReferencingSheets []ReferencingSheet `json:"referencing_sheets"`
	TotalSheets       int                `json:"total_sheets"`
}

func HandleFindSheetReferences(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params FindSheetReferencesParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	sheets, err := api.ListSheets(ctx)
	if err != nil {
		return nil, WrapAPIError(err)
	}

	target := params.TargetSheetID.Int64()
	found := make([]*ReferencingSheet, len(sheets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(referenceScanConcurrency)
	for i, s := range sheets {
		if s.ID == target {
			continue
		}
		g.Go(func() error {
			refs, err := api.ListCrossSheetReferences(gctx, s.ID)
			if err != nil {
				var nf smartsheet.ErrNotFound
				if errors.As(err, &nf) {
					return nil // deleted while scanning
				}
				return err
			}

			var names []string
			for _, ref := range refs {
				if ref.SourceSheetID == target {
					names = append(names, ref.Name)
				}
			}
			if len(names) > 0 {
				found[i] = &ReferencingSheet{SheetID: ID(s.ID), SheetName: s.Name, References: names}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, WrapAPIError(err)
	}

	result := FindReferencesResult{Success: true, TargetSheetID: params.TargetSheetID, ReferencingSheets: []ReferencingSheet{}}
	for _, f := range found {
		if f != nil {
			result.ReferencingSheets = append(result.ReferencingSheets, *f)
		}
	}
	result.TotalSheets = len(result.ReferencingSheets)

	tc.logger().Debug().Int("scanned", len(sheets)).Int("referencing", result.TotalSheets).Msg("Scanned sheets for references")
	return result, nil
}

type BrokenReference struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ValidateReferencesResult struct {
	Success          bool              `json:"success"`
	SheetID          ID                `json:"sheet_id"`
	ValidReferences  []string          `json:"valid_references"`
	BrokenReferences []BrokenReference `json:"broken_references"`
	TotalReferences  int               `json:"total_references"`
	AllValid         bool              `json:"all_valid"`
}

func HandleValidateCrossReferences(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params ValidateCrossReferencesParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	sheet, err := api.GetSheet(ctx, params.SheetID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}

	result := ValidateReferencesResult{
		Success:          true,
		SheetID:          params.SheetID,
		ValidReferences:  []string{},
		BrokenReferences: []BrokenReference{},
		TotalReferences:  len(sheet.CrossSheetReferences),
	}

	sources := map[int64]*smartsheet.Sheet{}
	defined := make(map[string]bool, len(sheet.CrossSheetReferences))
	for _, ref := range sheet.CrossSheetReferences {
		defined[ref.Name] = true

		reason, err := checkReference(ctx, api, ref, sources)
		if err != nil {
			return nil, WrapAPIError(err)
		}
		if reason != "" {
			result.BrokenReferences = append(result.BrokenReferences, BrokenReference{Name: ref.Name, Reason: reason})
			continue
		}
		result.ValidReferences = append(result.ValidReferences, ref.Name)
	}

	// Formulas may name references that were never defined (or were deleted)
	reported := map[string]bool{}
	for _, f := range crossSheetFormulas(sheet) {
		for _, name := range f.References {
			if defined[name] || reported[name] {
				continue
			}
			reported[name] = true
			result.BrokenReferences = append(result.BrokenReferences, BrokenReference{
				Name:   name,
				Reason: fmt.Sprintf("used by formula in row %d column %q but not defined on the sheet", f.RowNumber, f.Column),
			})
		}
	}

	result.AllValid = len(result.BrokenReferences) == 0
	return result, nil
}

// checkReference returns a non-empty reason when ref cannot resolve.
// sources caches fetched source sheets; a nil entry marks a missing sheet.
func checkReference(ctx context.Context, api smartsheet.API, ref smartsheet.CrossSheetReference, sources map[int64]*smartsheet.Sheet) (string, error) {
	if ref.Status != "" && ref.Status != smartsheet.ReferenceStatusOK {
		return "reference status is " + ref.Status, nil
	}

	source, cached := sources[ref.SourceSheetID]
	if !cached {
		s, err := api.GetSheet(ctx, ref.SourceSheetID)
		var nf smartsheet.ErrNotFound
		switch {
		case errors.As(err, &nf), errors.Is(err, smartsheet.ErrUnauthorized):
			s = nil
		case err != nil:
			return "", err
		}
		sources[ref.SourceSheetID] = s
		source = s
	}
	if source == nil {
		return fmt.Sprintf("source sheet %d is missing or not shared", ref.SourceSheetID), nil
	}

	for _, colID := range []int64{ref.StartColumnID, ref.EndColumnID} {
		if colID == 0 {
			continue
		}
		if !hasColumn(source, colID) {
			return fmt.Sprintf("column %d no longer exists in source sheet %d", colID, ref.SourceSheetID), nil
		}
	}
	return "", nil
}

func hasColumn(sheet *smartsheet.Sheet, columnID int64) bool {
	for _, c := range sheet.Columns {
		if c.ID == columnID {
			return true
		}
	}
	return false
}

type CreateCrossReferenceResult struct {
	Success         bool                             `json:"success"`
	SheetID         ID                               `json:"sheet_id"`
	TargetSheetID   ID                               `json:"target_sheet_id"`
	ReferenceName   string                           `json:"reference_name"`
	Formula         string                           `json:"formula"`
	CrossReferences []smartsheet.CrossSheetReference `json:"cross_references"`
	Created         int                              `json:"created"`
}

func HandleCreateCrossReference(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params CreateCrossReferenceParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	target, err := api.GetSheet(ctx, params.TargetSheetID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}

	plan, err := smartsheet.BuildFormula(params.FormulaConfig, params.BaseName(), target.Columns)
	if err != nil {
		return nil, NewToolError(ErrCodeInvalidParams, "Invalid formula_config: "+err.Error(), nil)
	}

	existing, err := api.ListCrossSheetReferences(ctx, params.SheetID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}
	byName := make(map[string]smartsheet.CrossSheetReference, len(existing))
	for _, ref := range existing {
		byName[ref.Name] = ref
	}

	result := CreateCrossReferenceResult{
		Success:       true,
		SheetID:       params.SheetID,
		TargetSheetID: params.TargetSheetID,
		ReferenceName: params.BaseName(),
		Formula:       plan.Formula,
	}
	for _, rng := range plan.Ranges {
		want := smartsheet.CrossSheetReference{
			Name:          rng.Name,
			SourceSheetID: target.ID,
			StartColumnID: rng.StartColumn.ID,
			EndColumnID:   rng.EndColumn.ID,
		}

		if ref, ok := byName[rng.Name]; ok {
			if ref.SourceSheetID != want.SourceSheetID || ref.StartColumnID != want.StartColumnID || ref.EndColumnID != want.EndColumnID {
				return nil, NewToolError(ErrCodeInvalidParams, fmt.Sprintf("Cross-sheet reference %q already exists with a different range", rng.Name), nil)
			}
			result.CrossReferences = append(result.CrossReferences, ref)
			continue
		}

		created, err := api.CreateCrossSheetReference(ctx, params.SheetID.Int64(), want)
		if err != nil {
			return nil, WrapAPIError(err)
		}
		byName[rng.Name] = *created
		result.CrossReferences = append(result.CrossReferences, *created)
		result.Created++
	}

	tc.logger().Info().
		Int64("sheetId", params.SheetID.Int64()).
		Int64("targetSheetId", params.TargetSheetID.Int64()).
		Str("formulaType", params.FormulaConfig.Type).
		Int("created", result.Created).
		Msg("Cross-sheet formula prepared")
	return result, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
)

// Sheet, row and column handlers

const sampleRows = 3

type ColumnInfo struct {
	ID      ID       `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Index   int      `json:"index"`
	Primary bool     `json:"primary"`
	Options []string `json:"options,omitempty"`
}

type ColumnMapResult struct {
	Success    bool             `json:"success"`
	SheetID    ID               `json:"sheet_id"`
	SheetName  string           `json:"sheet_name"`
	ColumnMap  map[string]ID    `json:"column_map"`
	ColumnInfo []ColumnInfo     `json:"column_info"`
	TotalRows  int              `json:"total_rows"`
	SampleData []map[string]any `json:"sample_data"`
}

func HandleGetColumnMap(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params GetColumnMapParams
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

	result := ColumnMapResult{
		Success:    true,
		SheetID:    ID(sheet.ID),
		SheetName:  sheet.Name,
		ColumnMap:  make(map[string]ID, len(sheet.Columns)),
		ColumnInfo: make([]ColumnInfo, 0, len(sheet.Columns)),
		TotalRows:  sheet.TotalRowCount,
		SampleData: []map[string]any{},
	}
	titles := make(map[int64]string, len(sheet.Columns))
	for _, c := range sheet.Columns {
		result.ColumnMap[c.Title] = ID(c.ID)
		result.ColumnInfo = append(result.ColumnInfo, ColumnInfo{
			ID:      ID(c.ID),
			Title:   c.Title,
			Type:    c.Type,
			Index:   c.Index,
			Primary: c.Primary,
			Options: c.Options,
		})
		titles[c.ID] = c.Title
	}
	for i, row := range sheet.Rows {
		if i == sampleRows {
			break
		}
		sample := map[string]any{"row_id": ID(row.ID)}
		for _, cell := range row.Cells {
			if title, ok := titles[cell.ColumnID]; ok && cell.Value != nil {
				sample[title] = cell.Value
			}
		}
		result.SampleData = append(result.SampleData, sample)
	}

	return result, nil
}

type RowsResult struct {
	Success     bool `json:"success"`
	RowsAdded   *int `json:"rows_added,omitempty"`
	RowsUpdated *int `json:"rows_updated,omitempty"`
	RowsDeleted *int `json:"rows_deleted,omitempty"`
	RowIDs      []ID `json:"row_ids"`
}

func rowCells(data map[string]any, columnMap map[string]ID) []smartsheet.Cell {
	cells := make([]smartsheet.Cell, 0, len(data))
	for _, title := range sortedKeys(data) {
		cells = append(cells, smartsheet.Cell{ColumnID: columnMap[title].Int64(), Value: data[title]})
	}
	return cells
}

func rowIDs(rows []smartsheet.Row) []ID {
	out := make([]ID, len(rows))
	for i, r := range rows {
		out[i] = ID(r.ID)
	}
	return out
}

func HandleWriteRows(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params WriteRowsParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	rows := make([]smartsheet.Row, 0, len(params.RowData))
	for _, data := range params.RowData {
		rows = append(rows, smartsheet.Row{Cells: rowCells(data, params.ColumnMap)})
	}

	added, err := api.AddRows(ctx, params.SheetID.Int64(), rows)
	if err != nil {
		return nil, WrapAPIError(err)
	}

	n := len(added)
	tc.logger().Info().Int64("sheetId", params.SheetID.Int64()).Int("rows", n).Msg("Rows added")
	return RowsResult{Success: true, RowsAdded: &n, RowIDs: rowIDs(added)}, nil
}

func HandleUpdateRows(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params UpdateRowsParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	rows := make([]smartsheet.Row, 0, len(params.Updates))
	for _, u := range params.Updates {
		rows = append(rows, smartsheet.Row{ID: u.RowID.Int64(), Cells: rowCells(u.Data, params.ColumnMap)})
	}

	updated, err := api.UpdateRows(ctx, params.SheetID.Int64(), rows)
	if err != nil {
		return nil, WrapAPIError(err)
	}

	n := len(updated)
	tc.logger().Info().Int64("sheetId", params.SheetID.Int64()).Int("rows", n).Msg("Rows updated")
	return RowsResult{Success: true, RowsUpdated: &n, RowIDs: rowIDs(updated)}, nil
}

func HandleDeleteRows(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params DeleteRowsParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	deleted, err := api.DeleteRows(ctx, params.SheetID.Int64(), ids(params.RowIDs))
	if err != nil {
		return nil, WrapAPIError(err)
	}

	out := make([]ID, len(deleted))
	for i, id := range deleted {
		out[i] = ID(id)
	}
	n := len(out)
	tc.logger().Info().Int64("sheetId", params.SheetID.Int64()).Int("rows", n).Msg("Rows deleted")
	return RowsResult{Success: true, RowsDeleted: &n, RowIDs: out}, nil
}

type SearchMatch struct {
	RowID     ID     `json:"row_id"`
	RowNumber int    `json:"row_number"`
	Column    string `json:"column"`
	Value     string `json:"value"`
}

type SearchResult struct {
	Success      bool          `json:"success"`
	SheetID      ID            `json:"sheet_id"`
	Pattern      string        `json:"pattern"`
	Matches      []SearchMatch `json:"matches"`
	TotalMatches int           `json:"total_matches"`
}

// buildMatcher turns the search pattern and options into a single regexp
func buildMatcher(pattern string, opts SearchOptions) (*regexp.Regexp, error) {
	expr := pattern
	if !opts.Regex {
		expr = regexp.QuoteMeta(pattern)
	}
	if opts.WholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if !opts.CaseSensitive {
		expr = `(?i)` + expr
	}
	return regexp.Compile(expr)
}

func HandleSearch(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params SearchParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	matcher, err := buildMatcher(params.Pattern, params.Options)
	if err != nil {
		return nil, NewToolError(ErrCodeInvalidParams, "Invalid pattern: "+err.Error(), nil)
	}

	sheet, err := api.GetSheet(ctx, params.SheetID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}

	titles := make(map[int64]string, len(sheet.Columns))
	for _, c := range sheet.Columns {
		titles[c.ID] = c.Title
	}

	var only map[string]bool
	if len(params.Options.Columns) > 0 {
		known := make(map[string]bool, len(sheet.Columns))
		for _, c := range sheet.Columns {
			known[c.Title] = true
		}
		only = make(map[string]bool, len(params.Options.Columns))
		for _, title := range params.Options.Columns {
			if !known[title] {
				return nil, NewToolError(ErrCodeInvalidParams, fmt.Sprintf("Unknown column in options.columns: %s", title), nil)
			}
			only[title] = true
		}
	}

	matches := []SearchMatch{}
	for _, row := range sheet.Rows {
		for _, cell := range row.Cells {
			title := titles[cell.ColumnID]
			if only != nil && !only[title] {
				continue
			}
			text := cellText(cell)
			if text == "" || !matcher.MatchString(text) {
				continue
			}
			matches = append(matches, SearchMatch{RowID: ID(row.ID), RowNumber: row.RowNumber, Column: title, Value: text})
		}
	}

	return SearchResult{
		Success:      true,
		SheetID:      params.SheetID,
		Pattern:      params.Pattern,
		Matches:      matches,
		TotalMatches: len(matches),
	}, nil
}

func cellText(c smartsheet.Cell) string {
	if c.DisplayValue != "" {
		return c.DisplayValue
	}
	if c.Value == nil {
		return ""
	}
	return fmt.Sprint(c.Value)
}

type ColumnResult struct {
	Success  bool               `json:"success"`
	SheetID  ID                 `json:"sheet_id"`
	Column   *smartsheet.Column `json:"column,omitempty"`
	ColumnID *ID                `json:"column_id,omitempty"`
}

func HandleAddColumn(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params AddColumnParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	col := smartsheet.Column{Title: params.Title, Type: params.Type, Options: params.Options, Index: -1}
	if params.Index != nil {
		col.Index = *params.Index
	} else if sheet, err := api.GetSheet(ctx, params.SheetID.Int64()); err == nil {
		col.Index = len(sheet.Columns)
	} else {
		return nil, WrapAPIError(err)
	}

	created, err := api.AddColumn(ctx, params.SheetID.Int64(), col)
	if err != nil {
		return nil, WrapAPIError(err)
	}

	tc.logger().Info().Int64("sheetId", params.SheetID.Int64()).Str("title", created.Title).Msg("Column added")
	return ColumnResult{Success: true, SheetID: params.SheetID, Column: created}, nil
}

func HandleDeleteColumn(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params DeleteColumnParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	if err := api.DeleteColumn(ctx, params.SheetID.Int64(), params.ColumnID.Int64()); err != nil {
		return nil, WrapAPIError(err)
	}
	return ColumnResult{Success: true, SheetID: params.SheetID, ColumnID: &params.ColumnID}, nil
}

func HandleRenameColumn(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params RenameColumnParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	col, err := api.UpdateColumn(ctx, params.SheetID.Int64(), smartsheet.Column{ID: params.ColumnID.Int64(), Title: params.NewTitle})
	if err != nil {
		return nil, WrapAPIError(err)
	}
	return ColumnResult{Success: true, SheetID: params.SheetID, Column: col}, nil
}

package tools

import (
	"fmt"
	"strings"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
)

var columnTypes = []string{
	smartsheet.ColumnTypeTextNumber,
	smartsheet.ColumnTypeDate,
	smartsheet.ColumnTypeCheckbox,
	smartsheet.ColumnTypePicklist,
	smartsheet.ColumnTypeContactList,
}

type GetColumnMapParams struct {
	SheetID ID `json:"sheet_id"`
}

func (p *GetColumnMapParams) Validate() error { return nil }

type WriteRowsParams struct {
	SheetID   ID               `json:"sheet_id"`
	RowData   []map[string]any `json:"row_data"`
	ColumnMap map[string]ID    `json:"column_map"`
}

func (p *WriteRowsParams) Validate() error {
	if len(p.RowData) == 0 {
		return fmt.Errorf("row_data must contain at least one row")
	}
	for i, row := range p.RowData {
		if err := checkColumns(row, p.ColumnMap, fmt.Sprintf("row_data[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

type RowUpdate struct {
	RowID ID             `json:"row_id"`
	Data  map[string]any `json:"data"`
}

type UpdateRowsParams struct {
	SheetID   ID            `json:"sheet_id"`
	Updates   []RowUpdate   `json:"updates"`
	ColumnMap map[string]ID `json:"column_map"`
}

func (p *UpdateRowsParams) Validate() error {
	if len(p.Updates) == 0 {
		return fmt.Errorf("updates must contain at least one row")
	}
	for i, u := range p.Updates {
		if len(u.Data) == 0 {
			return fmt.Errorf("updates[%d].data must not be empty", i)
		}
		if err := checkColumns(u.Data, p.ColumnMap, fmt.Sprintf("updates[%d].data", i)); err != nil {
			return err
		}
	}
	return nil
}

func checkColumns(row map[string]any, columnMap map[string]ID, where string) error {
	for title := range row {
		if _, ok := columnMap[title]; !ok {
			return fmt.Errorf("%s: column %q is not in column_map (call get_column_map first)", where, title)
		}
	}
	return nil
}

type DeleteRowsParams struct {
	SheetID ID   `json:"sheet_id"`
	RowIDs  []ID `json:"row_ids"`
}

func (p *DeleteRowsParams) Validate() error {
	if len(p.RowIDs) == 0 {
		return fmt.Errorf("row_ids must contain at least one row id")
	}
	return nil
}

type SearchOptions struct {
	Columns       []string `json:"columns,omitempty"`
	CaseSensitive bool     `json:"case_sensitive"`
	Regex         bool     `json:"regex"`
	WholeWord     bool     `json:"whole_word"`
}

type SearchParams struct {
	SheetID ID            `json:"sheet_id"`
	Pattern string        `json:"pattern"`
	Options SearchOptions `json:"options"`
}

func (p *SearchParams) Validate() error {
	if p.Pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	return nil
}

type AddColumnParams struct {
	SheetID ID       `json:"sheet_id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Index   *int     `json:"index,omitempty"`
	Options []string `json:"options,omitempty"`
}

func (p *AddColumnParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if len(p.Options) > 0 && p.Type != smartsheet.ColumnTypePicklist {
		return fmt.Errorf("options are only allowed for PICKLIST columns")
	}
	return nil
}

type DeleteColumnParams struct {
	SheetID  ID `json:"sheet_id"`
	ColumnID ID `json:"column_id"`
}

func (p *DeleteColumnParams) Validate() error { return nil }

type RenameColumnParams struct {
	SheetID  ID     `json:"sheet_id"`
	ColumnID ID     `json:"column_id"`
	NewTitle string `json:"new_title"`
}

func (p *RenameColumnParams) Validate() error {
	if strings.TrimSpace(p.NewTitle) == "" {
		return fmt.Errorf("new_title cannot be empty")
	}
	return nil
}

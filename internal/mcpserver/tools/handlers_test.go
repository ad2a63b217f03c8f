package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackerSheet = "1234567890123456"

var budgetSheet = fmt.Sprint(smartsheet.BudgetSheetID)

type fixture struct {
	t        *testing.T
	registry *Registry
	tc       *ToolContext
	mock     *smartsheet.Mock
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tc, mock := newMockContext(t)
	return &fixture{
		t:        t,
		registry: BuildRegistry(),
		tc:       tc,
		mock:     mock,
		root:     tc.Workspace.Roots()[0],
	}
}

// call runs a tool and decodes its text content into out
func (f *fixture) call(name string, args map[string]any, out any) error {
	f.t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(f.t, err)

	result, err := f.registry.Call(context.Background(), f.tc, CallRequest{Name: name, Arguments: raw})
	if err != nil {
		return err
	}
	if out != nil {
		text := result.(CallResult).Content[0].Text
		require.NoError(f.t, json.Unmarshal([]byte(text), out))
	}
	return nil
}

func (f *fixture) mustCall(name string, args map[string]any, out any) {
	f.t.Helper()
	require.NoError(f.t, f.call(name, args, out))
}

func (f *fixture) columnMap(sheetID string) ColumnMapResult {
	f.t.Helper()
	var res ColumnMapResult
	f.mustCall("get_column_map", map[string]any{"sheet_id": sheetID}, &res)
	return res
}

func (f *fixture) writeFile(name, content string) string {
	f.t.Helper()
	p := filepath.Join(f.root, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(f.t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func requireToolError(t *testing.T, err error, code ErrorCode) *ToolError {
	t.Helper()
	require.Error(t, err)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr), "expected *ToolError, got %T", err)
	assert.Equal(t, code, toolErr.Code)
	return toolErr
}

func TestGetColumnMap(t *testing.T) {
	f := newFixture(t)
	res := f.columnMap(trackerSheet)

	assert.True(t, res.Success)
	assert.Equal(t, ID(1234567890123456), res.SheetID)
	assert.Len(t, res.ColumnMap, 5)
	assert.Equal(t, 3, res.TotalRows)
	require.Len(t, res.SampleData, 3)
	assert.Equal(t, "Plan kickoff", res.SampleData[0]["Task Name"])
	assert.Contains(t, res.SampleData[0], "row_id")

	require.Len(t, res.ColumnInfo, 5)
	assert.True(t, res.ColumnInfo[0].Primary)
	assert.Equal(t, []string{"Not Started", "In Progress", "Done"}, res.ColumnInfo[1].Options)
}

func TestGetColumnMap_IntegerSheetID(t *testing.T) {
	f := newFixture(t)
	var res ColumnMapResult
	f.mustCall("get_column_map", map[string]any{"sheet_id": 42}, &res)
	assert.Equal(t, ID(42), res.SheetID)
}

func TestGetColumnMap_SheetNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.AutoSeed = false

	err := f.call("get_column_map", map[string]any{"sheet_id": "99"}, nil)
	toolErr := requireToolError(t, err, ErrCodeNotFound)
	assert.Equal(t, "sheet 99 not found", toolErr.Message)
}

func TestRowLifecycle(t *testing.T) {
	f := newFixture(t)
	cm := f.columnMap(trackerSheet)

	var added RowsResult
	f.mustCall("smartsheet_write", map[string]any{
		"sheet_id": trackerSheet,
		"row_data": []map[string]any{
			{"Task Name": "Ship release", "Status": "Not Started"},
			{"Task Name": "Retro"},
		},
		"column_map": cm.ColumnMap,
	}, &added)
	require.NotNil(t, added.RowsAdded)
	assert.Equal(t, 2, *added.RowsAdded)
	require.Len(t, added.RowIDs, 2)
	assert.Equal(t, 5, f.columnMap(trackerSheet).TotalRows)

	var updated RowsResult
	f.mustCall("smartsheet_update", map[string]any{
		"sheet_id": trackerSheet,
		"updates": []map[string]any{
			{"row_id": added.RowIDs[0], "data": map[string]any{"Status": "Done"}},
		},
		"column_map": cm.ColumnMap,
	}, &updated)
	require.NotNil(t, updated.RowsUpdated)
	assert.Equal(t, 1, *updated.RowsUpdated)

	var search SearchResult
	f.mustCall("smartsheet_search", map[string]any{
		"sheet_id": trackerSheet,
		"pattern":  "Done",
		"options":  map[string]any{"columns": []string{"Status"}, "case_sensitive": true},
	}, &search)
	assert.Equal(t, 2, search.TotalMatches)

	var deleted RowsResult
	f.mustCall("smartsheet_delete", map[string]any{
		"sheet_id": trackerSheet,
		"row_ids":  []any{added.RowIDs[0], added.RowIDs[1], "777"},
	}, &deleted)
	require.NotNil(t, deleted.RowsDeleted)
	assert.Equal(t, 2, *deleted.RowsDeleted)
	assert.Equal(t, 3, f.columnMap(trackerSheet).TotalRows)
}

func TestWriteRows_Errors(t *testing.T) {
	f := newFixture(t)
	cm := f.columnMap(trackerSheet)

	err := f.call("smartsheet_write", map[string]any{
		"sheet_id":   trackerSheet,
		"row_data":   []map[string]any{{"Priority": "High"}},
		"column_map": cm.ColumnMap,
	}, nil)
	toolErr := requireToolError(t, err, ErrCodeInvalidParams)
	assert.Contains(t, toolErr.Message, `column "Priority" is not in column_map`)

	err = f.call("smartsheet_write", map[string]any{
		"sheet_id":   trackerSheet,
		"row_data":   []map[string]any{},
		"column_map": cm.ColumnMap,
	}, nil)
	requireToolError(t, err, ErrCodeInvalidParams)

	err = f.call("smartsheet_update", map[string]any{
		"sheet_id":   trackerSheet,
		"updates":    []map[string]any{{"row_id": "5", "data": map[string]any{"Status": "Done"}}},
		"column_map": cm.ColumnMap,
	}, nil)
	requireToolError(t, err, ErrCodeNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		pattern string
		options map[string]any
		want    int
	}{
		{name: "case insensitive by default", pattern: "done", want: 1},
		{name: "case sensitive", pattern: "done", options: map[string]any{"case_sensitive": true}, want: 0},
		{name: "substring", pattern: "Start", want: 1},
		{name: "whole word", pattern: "Start", options: map[string]any{"whole_word": true}, want: 0},
		{name: "regex", pattern: `^(Plan|Review) `, options: map[string]any{"regex": true}, want: 2},
		{name: "literal metacharacters", pattern: "example.com", want: 3},
		{name: "column filter", pattern: "2026", options: map[string]any{"columns": []string{"Task Name"}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{"sheet_id": trackerSheet, "pattern": tt.pattern}
			if tt.options != nil {
				args["options"] = tt.options
			}
			var res SearchResult
			f.mustCall("smartsheet_search", args, &res)
			assert.Equal(t, tt.want, res.TotalMatches)
			assert.Len(t, res.Matches, tt.want)
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture(t)

	err := f.call("smartsheet_search", map[string]any{
		"sheet_id": trackerSheet,
		"pattern":  "x",
		"options":  map[string]any{"columns": []string{"Nope"}},
	}, nil)
	toolErr := requireToolError(t, err, ErrCodeInvalidParams)
	assert.Equal(t, "Unknown column in options.columns: Nope", toolErr.Message)

	err = f.call("smartsheet_search", map[string]any{
		"sheet_id": trackerSheet,
		"pattern":  "(",
		"options":  map[string]any{"regex": true},
	}, nil)
	toolErr = requireToolError(t, err, ErrCodeInvalidParams)
	assert.Contains(t, toolErr.Message, "Invalid pattern")
}

func TestColumns(t *testing.T) {
	f := newFixture(t)

	var added ColumnResult
	f.mustCall("smartsheet_add_column", map[string]any{
		"sheet_id": trackerSheet,
		"title":    "Priority",
		"type":     "PICKLIST",
		"options":  []string{"Low", "High"},
	}, &added)
	require.NotNil(t, added.Column)
	assert.Equal(t, 5, added.Column.Index)
	assert.Equal(t, []string{"Low", "High"}, added.Column.Options)

	var first ColumnResult
	f.mustCall("smartsheet_add_column", map[string]any{
		"sheet_id": trackerSheet,
		"title":    "Notes",
		"type":     "TEXT_NUMBER",
		"index":    1,
	}, &first)
	assert.Equal(t, 1, first.Column.Index)

	err := f.call("smartsheet_add_column", map[string]any{"sheet_id": trackerSheet, "title": "Notes", "type": "TEXT_NUMBER"}, nil)
	requireToolError(t, err, ErrCodeInvalidParams)

	err = f.call("smartsheet_add_column", map[string]any{
		"sheet_id": trackerSheet, "title": "Owner", "type": "TEXT_NUMBER", "options": []string{"a"},
	}, nil)
	toolErr := requireToolError(t, err, ErrCodeInvalidParams)
	assert.Equal(t, "options are only allowed for PICKLIST columns", toolErr.Message)

	colID := fmt.Sprint(int64(added.Column.ID))
	var renamed ColumnResult
	f.mustCall("smartsheet_rename_column", map[string]any{"sheet_id": trackerSheet, "column_id": colID, "new_title": "Urgency"}, &renamed)
	assert.Equal(t, "Urgency", renamed.Column.Title)

	var deleted ColumnResult
	f.mustCall("smartsheet_delete_column", map[string]any{"sheet_id": trackerSheet, "column_id": colID}, &deleted)
	require.NotNil(t, deleted.ColumnID)
	assert.Equal(t, ID(added.Column.ID), *deleted.ColumnID)
	assert.NotContains(t, f.columnMap(trackerSheet).ColumnMap, "Urgency")

	primary := f.columnMap(trackerSheet).ColumnMap["Task Name"]
	err = f.call("smartsheet_delete_column", map[string]any{"sheet_id": trackerSheet, "column_id": primary}, nil)
	toolErr = requireToolError(t, err, ErrCodeInvalidParams)
	assert.Equal(t, "the primary column cannot be deleted", toolErr.Message)
}

func TestGetCrossReferences(t *testing.T) {
	f := newFixture(t)

	var plain map[string]any
	f.mustCall("smartsheet_get_sheet_cross_references", map[string]any{"sheet_id": trackerSheet}, &plain)
	assert.NotContains(t, plain, "formulas")
	assert.Equal(t, float64(1), plain["total_references"])

	var detailed CrossReferencesResult
	f.mustCall("smartsheet_get_sheet_cross_references", map[string]any{"sheet_id": trackerSheet, "include_details": true}, &detailed)
	require.Len(t, detailed.CrossReferences, 1)
	assert.Equal(t, "Budget Range", detailed.CrossReferences[0].Name)
	require.Len(t, detailed.Formulas, 1)
	assert.Equal(t, "Budget", detailed.Formulas[0].Column)
	assert.Equal(t, []string{"Budget Range"}, detailed.Formulas[0].References)
}

func TestFindSheetReferences(t *testing.T) {
	f := newFixture(t)
	f.mock.Seed(111, "Alpha")
	f.mock.Seed(222, "Beta")

	var res FindReferencesResult
	f.mustCall("smartsheet_find_sheet_references", map[string]any{"target_sheet_id": budgetSheet}, &res)
	assert.Equal(t, 2, res.TotalSheets)

	names := map[string][]string{}
	for _, s := range res.ReferencingSheets {
		names[s.SheetName] = s.References
	}
	assert.Equal(t, map[string][]string{"Alpha": {"Budget Range"}, "Beta": {"Budget Range"}}, names)

	f.mustCall("smartsheet_find_sheet_references", map[string]any{"target_sheet_id": "111"}, &res)
	assert.Equal(t, 0, res.TotalSheets)
	assert.Empty(t, res.ReferencingSheets)
}

func TestValidateCrossReferences(t *testing.T) {
	f := newFixture(t)

	var res ValidateReferencesResult
	f.mustCall("smartsheet_validate_cross_references", map[string]any{"sheet_id": trackerSheet}, &res)
	assert.True(t, res.AllValid)
	assert.Equal(t, []string{"Budget Range"}, res.ValidReferences)

	amount := f.columnMap(budgetSheet).ColumnMap["Amount"]
	f.mustCall("smartsheet_delete_column", map[string]any{"sheet_id": budgetSheet, "column_id": amount}, nil)

	f.mustCall("smartsheet_validate_cross_references", map[string]any{"sheet_id": trackerSheet}, &res)
	assert.False(t, res.AllValid)
	assert.Empty(t, res.ValidReferences)
	require.Len(t, res.BrokenReferences, 1)
	assert.Equal(t, "Budget Range", res.BrokenReferences[0].Name)
	assert.Contains(t, res.BrokenReferences[0].Reason, "no longer exists")
}

func TestCreateCrossReference(t *testing.T) {
	f := newFixture(t)
	args := map[string]any{
		"sheet_id":        trackerSheet,
		"target_sheet_id": budgetSheet,
		"reference_name":  "Costs",
		"formula_config": map[string]any{
			"formula_type":  "INDEX_MATCH",
			"lookup_value":  "[Task Name]@row",
			"lookup_column": "Category",
			"return_column": "Amount",
		},
	}

	var res CreateCrossReferenceResult
	f.mustCall("smartsheet_create_cross_reference", args, &res)
	assert.Equal(t, "=INDEX({Costs Amount}, MATCH([Task Name]@row, {Costs Category}, 0))", res.Formula)
	assert.Equal(t, 2, res.Created)
	require.Len(t, res.CrossReferences, 2)
	assert.Equal(t, smartsheet.BudgetSheetID, res.CrossReferences[0].SourceSheetID)

	// repeating the call reuses the references it created
	f.mustCall("smartsheet_create_cross_reference", args, &res)
	assert.Equal(t, 0, res.Created)

	var refs CrossReferencesResult
	f.mustCall("smartsheet_get_sheet_cross_references", map[string]any{"sheet_id": trackerSheet}, &refs)
	assert.Equal(t, 3, refs.TotalReferences)
}

func TestCreateCrossReference_SameColumnTwice(t *testing.T) {
	tests := []struct {
		name        string
		config      map[string]any
		wantFormula string
	}{
		{
			name:        "sumif",
			config:      map[string]any{"formula_type": "SUMIF", "criteria_column": "Amount", "criteria": `">100"`, "sum_column": "Amount"},
			wantFormula: `=SUMIF({Spend Amount}, ">100", {Spend Amount})`,
		},
		{
			name:        "index match",
			config:      map[string]any{"formula_type": "INDEX_MATCH", "lookup_value": "[Task Name]@row", "lookup_column": "Category", "return_column": "Category"},
			wantFormula: "=INDEX({Spend Category}, MATCH([Task Name]@row, {Spend Category}, 0))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			var res CreateCrossReferenceResult
			f.mustCall("smartsheet_create_cross_reference", map[string]any{
				"sheet_id":        trackerSheet,
				"target_sheet_id": budgetSheet,
				"reference_name":  "Spend",
				"formula_config":  tt.config,
			}, &res)
			assert.Equal(t, tt.wantFormula, res.Formula)
			assert.Equal(t, 1, res.Created)
			assert.Len(t, res.CrossReferences, 1)

			var refs CrossReferencesResult
			f.mustCall("smartsheet_get_sheet_cross_references", map[string]any{"sheet_id": trackerSheet}, &refs)
			assert.Equal(t, 2, refs.TotalReferences)
		})
	}
}

func TestCreateCrossReference_DefaultName(t *testing.T) {
	f := newFixture(t)

	var res CreateCrossReferenceResult
	f.mustCall("smartsheet_create_cross_reference", map[string]any{
		"sheet_id":        trackerSheet,
		"target_sheet_id": budgetSheet,
		"formula_config":  map[string]any{"formula_type": "COUNTIF", "criteria_column": "Category", "criteria": `"Labor"`},
	}, &res)
	assert.Equal(t, budgetSheet+" Range", res.ReferenceName)
	assert.Equal(t, `=COUNTIF({`+budgetSheet+` Range Category}, "Labor")`, res.Formula)
}

func TestCreateCrossReference_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		args    map[string]any
		message string
	}{
		{
			name: "same sheet",
			args: map[string]any{
				"sheet_id": trackerSheet, "target_sheet_id": trackerSheet,
				"formula_config": map[string]any{"formula_type": "CUSTOM", "custom_formula": "=1"},
			},
			message: "target_sheet_id must differ from sheet_id",
		},
		{
			name: "unknown column",
			args: map[string]any{
				"sheet_id": trackerSheet, "target_sheet_id": budgetSheet,
				"formula_config": map[string]any{"formula_type": "SUMIF", "criteria_column": "Category", "criteria": `"Tools"`, "sum_column": "Total"},
			},
			message: `Invalid formula_config: sum_column "Total" not found in target sheet`,
		},
		{
			name: "existing name with another range",
			args: map[string]any{
				"sheet_id": trackerSheet, "target_sheet_id": budgetSheet, "reference_name": "Budget Range",
				"formula_config": map[string]any{"formula_type": "CUSTOM", "custom_formula": "=SUM({Budget Range})"},
			},
			message: `Cross-sheet reference "Budget Range" already exists with a different range`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.call("smartsheet_create_cross_reference", tt.args, nil)
			toolErr := requireToolError(t, err, ErrCodeInvalidParams)
			assert.Equal(t, tt.message, toolErr.Message)
		})
	}
}

func TestDiscussions(t *testing.T) {
	f := newFixture(t)
	rowID := f.columnMap(trackerSheet).SampleData[1]["row_id"]

	var sheetDisc DiscussionResult
	f.mustCall("smartsheet_create_discussion", map[string]any{
		"sheet_id": trackerSheet, "discussion_type": "sheet", "comment_text": "Kickoff notes", "title": "Kickoff",
	}, &sheetDisc)
	require.NotNil(t, sheetDisc.Discussion)
	assert.Equal(t, "Kickoff", sheetDisc.Discussion.Title)

	var rowDisc DiscussionResult
	f.mustCall("smartsheet_create_discussion", map[string]any{
		"sheet_id": trackerSheet, "discussion_type": "row", "row_id": rowID, "comment_text": "Needs review",
	}, &rowDisc)
	assert.Equal(t, "ROW", rowDisc.Discussion.ParentType)

	counts := map[string]int{}
	for _, kind := range []string{"sheet", "row", "all"} {
		args := map[string]any{"sheet_id": trackerSheet, "discussion_type": kind}
		if kind == "row" {
			args["row_id"] = rowID
		}
		var list DiscussionsResult
		f.mustCall("smartsheet_get_discussions", args, &list)
		counts[kind] = list.TotalDiscussions
	}
	assert.Equal(t, map[string]int{"sheet": 1, "row": 1, "all": 2}, counts)

	discID := fmt.Sprint(int64(rowDisc.Discussion.ID))
	var comment CommentResult
	f.mustCall("smartsheet_add_comment", map[string]any{"sheet_id": trackerSheet, "discussion_id": discID, "comment_text": "Done"}, &comment)
	require.NotNil(t, comment.Comment)

	var comments CommentsResult
	f.mustCall("smartsheet_get_comments", map[string]any{"sheet_id": trackerSheet, "discussion_id": discID}, &comments)
	assert.Equal(t, 2, comments.TotalComments)

	for _, c := range comments.Comments {
		f.mustCall("smartsheet_delete_comment", map[string]any{"sheet_id": trackerSheet, "comment_id": fmt.Sprint(c.ID)}, nil)
	}
	err := f.call("smartsheet_get_comments", map[string]any{"sheet_id": trackerSheet, "discussion_id": discID}, nil)
	requireToolError(t, err, ErrCodeNotFound)
}

func TestDiscussions_Errors(t *testing.T) {
	f := newFixture(t)

	err := f.call("smartsheet_create_discussion", map[string]any{
		"sheet_id": trackerSheet, "discussion_type": "row", "comment_text": "hi",
	}, nil)
	toolErr := requireToolError(t, err, ErrCodeInvalidParams)
	assert.Equal(t, "row_id is required when discussion_type is row", toolErr.Message)

	err = f.call("smartsheet_create_discussion", map[string]any{
		"sheet_id": trackerSheet, "discussion_type": "sheet", "comment_text": "   ",
	}, nil)
	requireToolError(t, err, ErrCodeInvalidParams)

	err = f.call("smartsheet_add_comment", map[string]any{
		"sheet_id": trackerSheet, "discussion_id": "5", "comment_text": "hi",
	}, nil)
	requireToolError(t, err, ErrCodeNotFound)
}

func TestAttachments(t *testing.T) {
	f := newFixture(t)
	rowID := f.columnMap(trackerSheet).SampleData[0]["row_id"]
	f.writeFile("docs/plan.json", `{"phase":1}`)

	var sheetAtt AttachmentResult
	f.mustCall("smartsheet_upload_attachment", map[string]any{
		"sheet_id": trackerSheet, "file_path": "docs/plan.json", "attachment_type": "sheet",
	}, &sheetAtt)
	require.NotNil(t, sheetAtt.Attachment)
	assert.Equal(t, "plan.json", sheetAtt.Attachment.Name)
	assert.Equal(t, "application/json", sheetAtt.Attachment.MimeType)

	var rowAtt AttachmentResult
	f.mustCall("smartsheet_upload_attachment", map[string]any{
		"sheet_id": trackerSheet, "file_path": filepath.Join(f.root, "docs", "plan.json"),
		"attachment_type": "row", "target_id": rowID, "file_name": "row-plan.json",
	}, &rowAtt)
	assert.Equal(t, "ROW", rowAtt.Attachment.ParentType)
	assert.Equal(t, "row-plan.json", rowAtt.Attachment.Name)

	counts := map[string]int{}
	for _, kind := range []string{"sheet", "row", "all"} {
		args := map[string]any{"sheet_id": trackerSheet, "attachment_type": kind}
		if kind == "row" {
			args["target_id"] = rowID
		}
		var list AttachmentsResult
		f.mustCall("smartsheet_get_attachments", args, &list)
		counts[kind] = list.TotalAttachments
	}
	assert.Equal(t, map[string]int{"sheet": 1, "row": 1, "all": 2}, counts)

	attID := fmt.Sprint(sheetAtt.Attachment.ID)

	var link AttachmentResult
	f.mustCall("smartsheet_download_attachment", map[string]any{"sheet_id": trackerSheet, "attachment_id": attID}, &link)
	assert.Contains(t, link.DownloadURL, "mock://")
	assert.Empty(t, link.SavedTo)

	require.NoError(t, os.Mkdir(filepath.Join(f.root, "out"), 0o755))
	var saved AttachmentResult
	f.mustCall("smartsheet_download_attachment", map[string]any{"sheet_id": trackerSheet, "attachment_id": attID, "save_path": "out"}, &saved)
	assert.Equal(t, filepath.Join(f.root, "out", "plan.json"), saved.SavedTo)
	assert.Equal(t, int64(len(`{"phase":1}`)), saved.BytesWritten)
	data, err := os.ReadFile(saved.SavedTo)
	require.NoError(t, err)
	assert.Equal(t, `{"phase":1}`, string(data))

	var deleted AttachmentResult
	f.mustCall("smartsheet_delete_attachment", map[string]any{"sheet_id": trackerSheet, "attachment_id": attID}, &deleted)
	require.NotNil(t, deleted.AttachmentID)

	err = f.call("smartsheet_download_attachment", map[string]any{"sheet_id": trackerSheet, "attachment_id": attID}, nil)
	requireToolError(t, err, ErrCodeNotFound)
}

func TestAttachments_Errors(t *testing.T) {
	f := newFixture(t)
	f.writeFile("report.pdf", "%PDF")
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

	tests := []struct {
		name    string
		args    map[string]any
		message string
	}{
		{
			name:    "outside workspace",
			args:    map[string]any{"sheet_id": trackerSheet, "file_path": outside, "attachment_type": "sheet"},
			message: "outside the workspace roots",
		},
		{
			name:    "missing file",
			args:    map[string]any{"sheet_id": trackerSheet, "file_path": "nope.pdf", "attachment_type": "sheet"},
			message: "Cannot open file_path",
		},
		{
			name:    "directory",
			args:    map[string]any{"sheet_id": trackerSheet, "file_path": ".", "attachment_type": "sheet"},
			message: "file_path must be a regular file",
		},
		{
			name:    "comment without target",
			args:    map[string]any{"sheet_id": trackerSheet, "file_path": "report.pdf", "attachment_type": "comment"},
			message: "target_id is required when attachment_type is comment",
		},
		{
			name:    "file name with separator",
			args:    map[string]any{"sheet_id": trackerSheet, "file_path": "report.pdf", "attachment_type": "sheet", "file_name": "a/b.pdf"},
			message: "file_name must not contain path separators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.call("smartsheet_upload_attachment", tt.args, nil)
			toolErr := requireToolError(t, err, ErrCodeInvalidParams)
			assert.Contains(t, toolErr.Message, tt.message)
		})
	}

	err := f.call("smartsheet_upload_attachment", map[string]any{
		"sheet_id": trackerSheet, "file_path": "report.pdf", "attachment_type": "comment", "target_id": "12",
	}, nil)
	requireToolError(t, err, ErrCodeNotFound)
}

func TestHandlers_WithoutAPI(t *testing.T) {
	r := BuildRegistry()
	tc := NewToolContext(nil, "u", "s", nil, nil)

	_, err := r.Call(context.Background(), tc, CallRequest{
		Name:      "get_column_map",
		Arguments: json.RawMessage(`{"sheet_id":"1"}`),
	})
	requireToolError(t, err, ErrCodeInternal)
}

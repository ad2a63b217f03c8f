package tools

import "github.com/erauner12/smartsheet-mcp/internal/smartsheet"

// BuildRegistry creates the sealed registry holding every Smartsheet tool
func BuildRegistry() *Registry {
	r := NewRegistry()
	RegisterAllTools(r)
	r.Seal()
	return r
}

// RegisterAllTools registers all available tools with the registry
func RegisterAllTools(r *Registry) {
	// Sheets, rows and columns
	registerSheetTools(r)

	// Cross-sheet references
	registerCrossReferenceTools(r)

	// Discussions and comments
	registerDiscussionTools(r)

	// Attachments
	registerAttachmentTools(r)
}

func registerSheetTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        "get_column_map",
		Description: "Get the column map of a sheet (column title to column ID) together with column details and sample rows. Call this before writing or updating rows.",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id": sheetIDSchema(),
		}, []string{"sheet_id"}),
	}, HandleGetColumnMap)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_write",
		Description: "Append new rows to a sheet. Each row is an object keyed by column title.",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":   sheetIDSchema(),
			"row_data":   ArraySchema("Rows to add, each keyed by column title", rowDataSchema("Cell values keyed by column title")),
			"column_map": columnMapSchema(),
		}, []string{"sheet_id", "row_data", "column_map"}),
	}, HandleWriteRows)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_update",
		Description: "Update cells of existing rows. Only the given columns change.",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id": sheetIDSchema(),
			"updates": ArraySchema("Row updates", NestedSchema("A single row update", map[string]any{
				"row_id": IDSchema("ID of the row to update"),
				"data":   rowDataSchema("New cell values keyed by column title"),
			}, []string{"row_id", "data"})),
			"column_map": columnMapSchema(),
		}, []string{"sheet_id", "updates", "column_map"}),
	}, HandleUpdateRows)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_delete",
		Description: "Delete rows from a sheet by row ID. Unknown row IDs are ignored.",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id": sheetIDSchema(),
			"row_ids":  ArraySchema("IDs of the rows to delete", IDSchema("Row ID")),
		}, []string{"sheet_id", "row_ids"}),
	}, HandleDeleteRows)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_search",
		Description: "Search cell values in a sheet by text or regular expression",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id": sheetIDSchema(),
			"pattern":  StringSchema("Text or regular expression to search for"),
			"options": NestedSchema("Search options", map[string]any{
				"columns":        ArraySchema("Limit the search to these column titles", StringSchema("Column title")),
				"case_sensitive": WithDefault(BooleanSchema("Match case"), false),
				"regex":          WithDefault(BooleanSchema("Treat pattern as a regular expression"), false),
				"whole_word":     WithDefault(BooleanSchema("Only match whole words"), false),
			}, nil),
		}, []string{"sheet_id", "pattern"}),
	}, HandleSearch)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_add_column",
		Description: "Add a column to a sheet",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id": sheetIDSchema(),
			"title":    StringSchema("Column title (must be unique in the sheet)"),
			"type":     EnumSchema("Column type", columnTypes),
			"index":    IntegerSchema("Zero-based position of the new column (defaults to the end)", intPtr(0), nil),
			"options":  ArraySchema("Picklist options (PICKLIST columns only)", StringSchema("Option")),
		}, []string{"sheet_id", "title", "type"}),
	}, HandleAddColumn)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_delete_column",
		Description: "Delete a column from a sheet. The primary column cannot be deleted.",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":  sheetIDSchema(),
			"column_id": IDSchema("ID of the column to delete"),
		}, []string{"sheet_id", "column_id"}),
	}, HandleDeleteColumn)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_rename_column",
		Description: "Rename a column",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":  sheetIDSchema(),
			"column_id": IDSchema("ID of the column to rename"),
			"new_title": StringSchema("New column title"),
		}, []string{"sheet_id", "column_id", "new_title"}),
	}, HandleRenameColumn)
}

func registerCrossReferenceTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_get_sheet_cross_references",
		Description: "List the cross-sheet references defined on a sheet, optionally with the formulas that use them",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":        sheetIDSchema(),
			"include_details": WithDefault(BooleanSchema("Include formula cells that use cross-sheet references"), false),
		}, []string{"sheet_id"}),
	}, HandleGetCrossReferences)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_find_sheet_references",
		Description: "Find every accessible sheet with a cross-sheet reference pointing at the target sheet",
		InputSchema: BuildSchema(map[string]any{
			"target_sheet_id": IDSchema("ID of the sheet being referenced"),
		}, []string{"target_sheet_id"}),
	}, HandleFindSheetReferences)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_validate_cross_references",
		Description: "Check that every cross-sheet reference of a sheet resolves, and that formulas only use defined references",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id": sheetIDSchema(),
		}, []string{"sheet_id"}),
	}, HandleValidateCrossReferences)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_create_cross_reference",
		Description: "Create the cross-sheet references needed for a formula that reads another sheet, and return the formula",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":        sheetIDSchema(),
			"target_sheet_id": IDSchema("ID of the sheet to read from"),
			"formula_config": NestedSchema("Formula to generate", map[string]any{
				"formula_type":    EnumSchema("Formula kind", smartsheet.FormulaTypes),
				"lookup_value":    StringSchema("Value or cell reference to look up, e.g. [Task Name]@row (INDEX_MATCH, VLOOKUP)"),
				"lookup_column":   StringSchema("Target sheet column searched for lookup_value (INDEX_MATCH, VLOOKUP)"),
				"return_column":   StringSchema("Target sheet column returned (INDEX_MATCH, VLOOKUP)"),
				"criteria_column": StringSchema("Target sheet column tested against criteria (SUMIF, COUNTIF)"),
				"criteria":        StringSchema(`Criteria expression, e.g. "Done" (SUMIF, COUNTIF)`),
				"sum_column":      StringSchema("Target sheet column summed (SUMIF)"),
				"custom_formula":  StringSchema("Complete formula starting with = (CUSTOM)"),
			}, []string{"formula_type"}),
			"reference_name": StringSchema(`Base name of the created references (defaults to "<target_sheet_id> Range")`),
		}, []string{"sheet_id", "target_sheet_id", "formula_config"}),
	}, HandleCreateCrossReference)
}

func registerDiscussionTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_create_discussion",
		Description: "Start a discussion on a sheet or a row with an initial comment",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":        sheetIDSchema(),
			"discussion_type": EnumSchema("Where the discussion lives", []string{discussionSheet, discussionRow}),
			"row_id":          IDSchema("Row ID (required when discussion_type is row)"),
			"comment_text":    StringSchema("Text of the first comment"),
			"title":           StringSchema("Discussion title"),
		}, []string{"sheet_id", "discussion_type", "comment_text"}),
	}, HandleCreateDiscussion)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_add_comment",
		Description: "Add a comment to an existing discussion",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":      sheetIDSchema(),
			"discussion_id": IDSchema("ID of the discussion"),
			"comment_text":  StringSchema("Comment text"),
		}, []string{"sheet_id", "discussion_id", "comment_text"}),
	}, HandleAddComment)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_get_discussions",
		Description: "List discussions on a sheet, on one row, or everywhere",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":         sheetIDSchema(),
			"discussion_type":  WithDefault(EnumSchema("Which discussions to list", []string{discussionSheet, discussionRow, discussionAll}), discussionAll),
			"row_id":           IDSchema("Row ID (required when discussion_type is row)"),
			"include_comments": WithDefault(BooleanSchema("Include the comments of each discussion"), true),
		}, []string{"sheet_id"}),
	}, HandleGetDiscussions)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_get_comments",
		Description: "List the comments of a discussion",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":      sheetIDSchema(),
			"discussion_id": IDSchema("ID of the discussion"),
		}, []string{"sheet_id", "discussion_id"}),
	}, HandleGetComments)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_delete_comment",
		Description: "Delete a comment. A discussion whose last comment is deleted is removed.",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":   sheetIDSchema(),
			"comment_id": IDSchema("ID of the comment"),
		}, []string{"sheet_id", "comment_id"}),
	}, HandleDeleteComment)
}

func registerAttachmentTools(r *Registry) {
	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_upload_attachment",
		Description: "Upload a local file as an attachment to a sheet, row or comment",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":        sheetIDSchema(),
			"file_path":       StringSchema("Path of the file to upload (inside the workspace)"),
			"attachment_type": EnumSchema("What the attachment is attached to", []string{attachmentSheet, attachmentRow, attachmentComment}),
			"target_id":       IDSchema("Row or comment ID (required for row and comment attachments)"),
			"file_name":       StringSchema("Name shown in Smartsheet (defaults to the file's base name)"),
		}, []string{"sheet_id", "file_path", "attachment_type"}),
	}, HandleUploadAttachment)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_get_attachments",
		Description: "List attachments on a sheet, on one row, or everywhere",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":        sheetIDSchema(),
			"attachment_type": WithDefault(EnumSchema("Which attachments to list", []string{attachmentSheet, attachmentRow, attachmentAll}), attachmentAll),
			"target_id":       IDSchema("Row ID (required when attachment_type is row)"),
		}, []string{"sheet_id"}),
	}, HandleGetAttachments)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_download_attachment",
		Description: "Get an attachment's temporary download URL, optionally saving the file into the workspace",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":      sheetIDSchema(),
			"attachment_id": IDSchema("ID of the attachment"),
			"save_path":     StringSchema("File or directory to save the attachment to (inside the workspace)"),
		}, []string{"sheet_id", "attachment_id"}),
	}, HandleDownloadAttachment)

	r.MustRegister(ToolDefinition{
		Name:        "smartsheet_delete_attachment",
		Description: "Delete an attachment",
		InputSchema: BuildSchema(map[string]any{
			"sheet_id":      sheetIDSchema(),
			"attachment_id": IDSchema("ID of the attachment"),
		}, []string{"sheet_id", "attachment_id"}),
	}, HandleDeleteAttachment)
}

func intPtr(v int) *int {
	return &v
}

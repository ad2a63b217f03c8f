package smartsheet

import "time"

// Column types accepted by the Smartsheet API for new columns
const (
	ColumnTypeTextNumber  = "TEXT_NUMBER"
	ColumnTypeDate        = "DATE"
	ColumnTypeCheckbox    = "CHECKBOX"
	ColumnTypePicklist    = "PICKLIST"
	ColumnTypeContactList = "CONTACT_LIST"
)

// Cross-sheet reference statuses reported by the API
const (
	ReferenceStatusOK           = "OK"
	ReferenceStatusBlocked      = "BLOCKED"
	ReferenceStatusBroken       = "BROKEN"
	ReferenceStatusDisabled     = "DISABLED"
	ReferenceStatusInvalid      = "INVALID"
	ReferenceStatusNotShared    = "NOT_SHARED"
	ReferenceStatusSourceMissed = "SOURCE_SHEET_MISSING"
)

// Sheet is the subset of the Smartsheet sheet object the tools use
type Sheet struct {
	ID                   int64                 `json:"id"`
	Name                 string                `json:"name"`
	TotalRowCount        int                   `json:"totalRowCount"`
	Columns              []Column              `json:"columns"`
	Rows                 []Row                 `json:"rows,omitempty"`
	CrossSheetReferences []CrossSheetReference `json:"crossSheetReferences,omitempty"`
}

// SheetSummary is an entry of GET /sheets
type SheetSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Column describes one sheet column
type Column struct {
	ID      int64    `json:"id,omitempty"`
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Primary bool     `json:"primary,omitempty"`
	Options []string `json:"options,omitempty"`
}

// Row is a sheet row with its cells
type Row struct {
	ID        int64  `json:"id,omitempty"`
	RowNumber int    `json:"rowNumber,omitempty"`
	ToBottom  bool   `json:"toBottom,omitempty"`
	Cells     []Cell `json:"cells"`
}

// Cell is a single cell value; Formula is set when the cell is computed
type Cell struct {
	ColumnID     int64  `json:"columnId"`
	Value        any    `json:"value,omitempty"`
	DisplayValue string `json:"displayValue,omitempty"`
	Formula      string `json:"formula,omitempty"`
}

// CrossSheetReference is a named range in another sheet usable from formulas
type CrossSheetReference struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name"`
	SourceSheetID int64  `json:"sourceSheetId"`
	StartColumnID int64  `json:"startColumnId,omitempty"`
	EndColumnID   int64  `json:"endColumnId,omitempty"`
	StartRowID    int64  `json:"startRowId,omitempty"`
	EndRowID      int64  `json:"endRowId,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Discussion is a comment thread on a sheet or row
type Discussion struct {
	ID           int64     `json:"id,omitempty"`
	Title        string    `json:"title,omitempty"`
	ParentID     int64     `json:"parentId,omitempty"`
	ParentType   string    `json:"parentType,omitempty"` // SHEET or ROW
	Comment      *Comment  `json:"comment,omitempty"`    // first comment, create only
	Comments     []Comment `json:"comments,omitempty"`
	CommentCount int       `json:"commentCount,omitempty"`
}

// Comment is a single message within a discussion
type Comment struct {
	ID           int64     `json:"id,omitempty"`
	DiscussionID int64     `json:"discussionId,omitempty"`
	Text         string    `json:"text"`
	CreatedBy    *User     `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// User identifies the author of a comment or attachment
type User struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Attachment is a file attached to a sheet, row or comment
type Attachment struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	AttachmentType string    `json:"attachmentType,omitempty"` // FILE, LINK, ...
	MimeType       string    `json:"mimeType,omitempty"`
	SizeInKb       int64     `json:"sizeInKb,omitempty"`
	ParentID       int64     `json:"parentId,omitempty"`
	ParentType     string    `json:"parentType,omitempty"` // SHEET, ROW, COMMENT
	URL            string    `json:"url,omitempty"`
	URLExpiresInMs int64     `json:"urlExpiresInMillis,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// Target identifies the object a discussion or attachment belongs to
type Target struct {
	Kind TargetKind
	ID   int64 // row or comment id; ignored for TargetSheet
}

// TargetKind is the parent object type of a discussion or attachment
type TargetKind string

const (
	TargetSheet   TargetKind = "sheet"
	TargetRow     TargetKind = "row"
	TargetComment TargetKind = "comment"
)

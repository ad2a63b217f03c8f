// Package smartsheet is the adapter between the MCP tools and the Smartsheet
// REST API 2.0. The API interface is implemented by Client (real HTTP) and
// Mock (in-memory backend used in dev mode and tests).
package smartsheet

import (
	"context"
	"io"
)

// API is every upstream operation the tool handlers rely on
type API interface {
	GetSheet(ctx context.Context, sheetID int64) (*Sheet, error)
	ListSheets(ctx context.Context) ([]SheetSummary, error)

	AddRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error)
	UpdateRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error)
	DeleteRows(ctx context.Context, sheetID int64, rowIDs []int64) ([]int64, error)

	AddColumn(ctx context.Context, sheetID int64, col Column) (*Column, error)
	UpdateColumn(ctx context.Context, sheetID int64, col Column) (*Column, error)
	DeleteColumn(ctx context.Context, sheetID, columnID int64) error

	ListCrossSheetReferences(ctx context.Context, sheetID int64) ([]CrossSheetReference, error)
	CreateCrossSheetReference(ctx context.Context, sheetID int64, ref CrossSheetReference) (*CrossSheetReference, error)

	CreateDiscussion(ctx context.Context, sheetID int64, target Target, d Discussion) (*Discussion, error)
	ListDiscussions(ctx context.Context, sheetID int64, target *Target, includeComments bool) ([]Discussion, error)
	GetDiscussion(ctx context.Context, sheetID, discussionID int64) (*Discussion, error)
	AddComment(ctx context.Context, sheetID, discussionID int64, text string) (*Comment, error)
	DeleteComment(ctx context.Context, sheetID, commentID int64) error

	UploadAttachment(ctx context.Context, sheetID int64, target Target, fileName string, content io.Reader, size int64) (*Attachment, error)
	ListAttachments(ctx context.Context, sheetID int64, target *Target) ([]Attachment, error)
	GetAttachment(ctx context.Context, sheetID, attachmentID int64) (*Attachment, error)
	DownloadAttachment(ctx context.Context, sheetID, attachmentID int64, w io.Writer) (*Attachment, error)
	DeleteAttachment(ctx context.Context, sheetID, attachmentID int64) error
}

var (
	_ API = (*Client)(nil)
	_ API = (*Mock)(nil)
)

package smartsheet

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
)

// Sheets and rows

// GetSheet fetches a sheet with columns, rows and cross-sheet references
func (c *Client) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	q := url.Values{}
	q.Set("include", "crossSheetReferences")

	var sheet Sheet
	if err := c.request(ctx, http.MethodGet, sheetPath(sheetID), q, nil, ErrNotFound{Kind: "sheet", ID: sheetID}, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// ListSheets returns every sheet the token can access
func (c *Client) ListSheets(ctx context.Context) ([]SheetSummary, error) {
	q := url.Values{}
	q.Set("includeAll", "true")

	var resp listEnvelope[SheetSummary]
	if err := c.request(ctx, http.MethodGet, "/sheets", q, nil, ErrNotFound{Kind: "sheets"}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AddRows appends rows to the bottom of the sheet
func (c *Client) AddRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error) {
	for i := range rows {
		rows[i].ToBottom = true
	}

	var resp resultEnvelope[[]Row]
	if err := c.request(ctx, http.MethodPost, sheetPath(sheetID)+"/rows", nil, rows, ErrNotFound{Kind: "sheet", ID: sheetID}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// UpdateRows updates cells of existing rows (rows must carry their ID)
func (c *Client) UpdateRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error) {
	var resp resultEnvelope[[]Row]
	if err := c.request(ctx, http.MethodPut, sheetPath(sheetID)+"/rows", nil, rows, ErrNotFound{Kind: "sheet", ID: sheetID}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// DeleteRows deletes rows by ID, ignoring IDs that no longer exist
func (c *Client) DeleteRows(ctx context.Context, sheetID int64, rowIDs []int64) ([]int64, error) {
	q := url.Values{}
	q.Set("ids", joinIDs(rowIDs))
	q.Set("ignoreRowsNotFound", "true")

	var resp resultEnvelope[[]int64]
	if err := c.request(ctx, http.MethodDelete, sheetPath(sheetID)+"/rows", q, nil, ErrNotFound{Kind: "sheet", ID: sheetID}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Columns

// AddColumn inserts a column at col.Index
func (c *Client) AddColumn(ctx context.Context, sheetID int64, col Column) (*Column, error) {
	var resp resultEnvelope[[]Column]
	if err := c.request(ctx, http.MethodPost, sheetPath(sheetID)+"/columns", nil, []Column{col}, ErrNotFound{Kind: "sheet", ID: sheetID}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("add column returned no columns")
	}
	return &resp.Result[0], nil
}

// UpdateColumn updates the title (and other mutable fields) of col.ID
func (c *Client) UpdateColumn(ctx context.Context, sheetID int64, col Column) (*Column, error) {
	body := map[string]any{"title": col.Title}
	if col.Index > 0 {
		body["index"] = col.Index
	}

	path := fmt.Sprintf("%s/columns/%d", sheetPath(sheetID), col.ID)
	var resp resultEnvelope[Column]
	if err := c.request(ctx, http.MethodPut, path, nil, body, ErrNotFound{Kind: "column", ID: col.ID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// DeleteColumn removes a column
func (c *Client) DeleteColumn(ctx context.Context, sheetID, columnID int64) error {
	path := fmt.Sprintf("%s/columns/%d", sheetPath(sheetID), columnID)
	return c.request(ctx, http.MethodDelete, path, nil, nil, ErrNotFound{Kind: "column", ID: columnID}, nil)
}

// Cross-sheet references

// ListCrossSheetReferences lists the references defined on a sheet
func (c *Client) ListCrossSheetReferences(ctx context.Context, sheetID int64) ([]CrossSheetReference, error) {
	q := url.Values{}
	q.Set("includeAll", "true")

	var resp listEnvelope[CrossSheetReference]
	if err := c.request(ctx, http.MethodGet, sheetPath(sheetID)+"/crosssheetreferences", q, nil, ErrNotFound{Kind: "sheet", ID: sheetID}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateCrossSheetReference defines a new named reference on sheetID
func (c *Client) CreateCrossSheetReference(ctx context.Context, sheetID int64, ref CrossSheetReference) (*CrossSheetReference, error) {
	var resp resultEnvelope[CrossSheetReference]
	if err := c.request(ctx, http.MethodPost, sheetPath(sheetID)+"/crosssheetreferences", nil, ref, ErrNotFound{Kind: "sheet", ID: ref.SourceSheetID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// Discussions and comments

// CreateDiscussion starts a discussion on the sheet or on a row
func (c *Client) CreateDiscussion(ctx context.Context, sheetID int64, target Target, d Discussion) (*Discussion, error) {
	path := sheetPath(sheetID) + "/discussions"
	notFound := ErrNotFound{Kind: "sheet", ID: sheetID}
	if target.Kind == TargetRow {
		path = fmt.Sprintf("%s/rows/%d/discussions", sheetPath(sheetID), target.ID)
		notFound = ErrNotFound{Kind: "row", ID: target.ID}
	}

	if d.Comment == nil {
		return nil, fmt.Errorf("discussion requires an initial comment")
	}

	body := map[string]any{"comment": map[string]string{"text": d.Comment.Text}}
	if d.Title != "" {
		body["title"] = d.Title
	}

	var resp resultEnvelope[Discussion]
	if err := c.request(ctx, http.MethodPost, path, nil, body, notFound, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// ListDiscussions lists sheet discussions, or one row's discussions when target is a row
func (c *Client) ListDiscussions(ctx context.Context, sheetID int64, target *Target, includeComments bool) ([]Discussion, error) {
	path := sheetPath(sheetID) + "/discussions"
	notFound := ErrNotFound{Kind: "sheet", ID: sheetID}
	if target != nil && target.Kind == TargetRow {
		path = fmt.Sprintf("%s/rows/%d/discussions", sheetPath(sheetID), target.ID)
		notFound = ErrNotFound{Kind: "row", ID: target.ID}
	}

	q := url.Values{}
	q.Set("includeAll", "true")
	if includeComments {
		q.Set("include", "comments")
	}

	var resp listEnvelope[Discussion]
	if err := c.request(ctx, http.MethodGet, path, q, nil, notFound, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetDiscussion fetches one discussion including its comments
func (c *Client) GetDiscussion(ctx context.Context, sheetID, discussionID int64) (*Discussion, error) {
	path := fmt.Sprintf("%s/discussions/%d", sheetPath(sheetID), discussionID)
	var d Discussion
	if err := c.request(ctx, http.MethodGet, path, nil, nil, ErrNotFound{Kind: "discussion", ID: discussionID}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// AddComment appends a comment to a discussion
func (c *Client) AddComment(ctx context.Context, sheetID, discussionID int64, text string) (*Comment, error) {
	path := fmt.Sprintf("%s/discussions/%d/comments", sheetPath(sheetID), discussionID)
	var resp resultEnvelope[Comment]
	if err := c.request(ctx, http.MethodPost, path, nil, map[string]string{"text": text}, ErrNotFound{Kind: "discussion", ID: discussionID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// DeleteComment removes a comment
func (c *Client) DeleteComment(ctx context.Context, sheetID, commentID int64) error {
	path := fmt.Sprintf("%s/comments/%d", sheetPath(sheetID), commentID)
	return c.request(ctx, http.MethodDelete, path, nil, nil, ErrNotFound{Kind: "comment", ID: commentID}, nil)
}

// Attachments

func attachmentsPath(sheetID int64, target Target) (string, ErrNotFound) {
	switch target.Kind {
	case TargetRow:
		return fmt.Sprintf("%s/rows/%d/attachments", sheetPath(sheetID), target.ID), ErrNotFound{Kind: "row", ID: target.ID}
	case TargetComment:
		return fmt.Sprintf("%s/comments/%d/attachments", sheetPath(sheetID), target.ID), ErrNotFound{Kind: "comment", ID: target.ID}
	default:
		return sheetPath(sheetID) + "/attachments", ErrNotFound{Kind: "sheet", ID: sheetID}
	}
}

// UploadAttachment uploads a file as a simple (non-multipart) upload
func (c *Client) UploadAttachment(ctx context.Context, sheetID int64, target Target, fileName string, content io.Reader, size int64) (*Attachment, error) {
	path, notFound := attachmentsPath(sheetID, target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, content)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentTypeFor(fileName))
	req.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))

	var resp resultEnvelope[Attachment]
	if err := c.send(ctx, req, notFound, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// ListAttachments lists attachments on the sheet (all levels) or on one row
func (c *Client) ListAttachments(ctx context.Context, sheetID int64, target *Target) ([]Attachment, error) {
	t := Target{Kind: TargetSheet}
	if target != nil {
		t = *target
	}
	path, notFound := attachmentsPath(sheetID, t)

	q := url.Values{}
	q.Set("includeAll", "true")

	var resp listEnvelope[Attachment]
	if err := c.request(ctx, http.MethodGet, path, q, nil, notFound, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetAttachment fetches attachment metadata including a temporary download URL
func (c *Client) GetAttachment(ctx context.Context, sheetID, attachmentID int64) (*Attachment, error) {
	path := sheetPath(sheetID) + "/attachments/" + strconv.FormatInt(attachmentID, 10)
	var att Attachment
	if err := c.request(ctx, http.MethodGet, path, nil, nil, ErrNotFound{Kind: "attachment", ID: attachmentID}, &att); err != nil {
		return nil, err
	}
	return &att, nil
}

// DownloadAttachment streams the attachment contents into w.
// The temporary URL is pre-signed, so no Authorization header is sent.
func (c *Client) DownloadAttachment(ctx context.Context, sheetID, attachmentID int64, w io.Writer) (*Attachment, error) {
	att, err := c.GetAttachment(ctx, sheetID, attachmentID)
	if err != nil {
		return nil, err
	}
	if att.URL == "" {
		return nil, fmt.Errorf("attachment %d has no download URL", attachmentID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, ErrNotFound{Kind: "attachment", ID: attachmentID}); err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to write attachment: %w", err)
	}
	return att, nil
}

// DeleteAttachment removes an attachment
func (c *Client) DeleteAttachment(ctx context.Context, sheetID, attachmentID int64) error {
	path := sheetPath(sheetID) + "/attachments/" + strconv.FormatInt(attachmentID, 10)
	return c.request(ctx, http.MethodDelete, path, nil, nil, ErrNotFound{Kind: "attachment", ID: attachmentID}, nil)
}

func contentTypeFor(fileName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

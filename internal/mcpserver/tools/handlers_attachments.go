package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
)

// Attachment handlers

type AttachmentResult struct {
	Success      bool                   `json:"success"`
	SheetID      ID                     `json:"sheet_id"`
	Attachment   *smartsheet.Attachment `json:"attachment,omitempty"`
	AttachmentID *ID                    `json:"attachment_id,omitempty"`
	DownloadURL  string                 `json:"download_url,omitempty"`
	SavedTo      string                 `json:"saved_to,omitempty"`
	BytesWritten int64                  `json:"bytes_written,omitempty"`
}

func (tc *ToolContext) resolvePath(p string) (string, error) {
	if tc.Workspace == nil {
		return "", NewToolError(ErrCodeInternal, "File access is not configured", nil)
	}
	resolved, err := tc.Workspace.Resolve(p)
	if err != nil {
		return "", NewToolError(ErrCodeInvalidParams, err.Error(), nil)
	}
	return resolved, nil
}

func HandleUploadAttachment(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params UploadAttachmentParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	path, err := tc.resolvePath(params.FilePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, NewToolError(ErrCodeInvalidParams, fmt.Sprintf("Cannot open file_path: %v", err), nil)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, NewToolError(ErrCodeInternal, err.Error(), nil)
	}
	if !info.Mode().IsRegular() {
		return nil, NewToolError(ErrCodeInvalidParams, "file_path must be a regular file", nil)
	}

	target := smartsheet.Target{Kind: smartsheet.TargetSheet}
	switch params.AttachmentType {
	case attachmentRow:
		target = smartsheet.Target{Kind: smartsheet.TargetRow, ID: params.TargetID.Int64()}
	case attachmentComment:
		target = smartsheet.Target{Kind: smartsheet.TargetComment, ID: params.TargetID.Int64()}
	}

	att, err := api.UploadAttachment(ctx, params.SheetID.Int64(), target, params.Name(), f, info.Size())
	if err != nil {
		return nil, WrapAPIError(err)
	}

	tc.logger().Info().
		Int64("sheetId", params.SheetID.Int64()).
		Str("type", params.AttachmentType).
		Str("file", params.Name()).
		Int64("bytes", info.Size()).
		Msg("Attachment uploaded")
	return AttachmentResult{Success: true, SheetID: params.SheetID, Attachment: att}, nil
}

type AttachmentsResult struct {
	Success          bool                    `json:"success"`
	SheetID          ID                      `json:"sheet_id"`
	AttachmentType   string                  `json:"attachment_type"`
	Attachments      []smartsheet.Attachment `json:"attachments"`
	TotalAttachments int                     `json:"total_attachments"`
}

func HandleGetAttachments(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params GetAttachmentsParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	var target *smartsheet.Target
	if params.AttachmentType == attachmentRow {
		target = &smartsheet.Target{Kind: smartsheet.TargetRow, ID: params.TargetID.Int64()}
	}

	list, err := api.ListAttachments(ctx, params.SheetID.Int64(), target)
	if err != nil {
		return nil, WrapAPIError(err)
	}

	attachments := make([]smartsheet.Attachment, 0, len(list))
	for _, a := range list {
		if params.AttachmentType == attachmentSheet && a.ParentType != "SHEET" {
			continue
		}
		attachments = append(attachments, a)
	}

	return AttachmentsResult{
		Success:          true,
		SheetID:          params.SheetID,
		AttachmentType:   params.AttachmentType,
		Attachments:      attachments,
		TotalAttachments: len(attachments),
	}, nil
}

func HandleDownloadAttachment(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params DownloadAttachmentParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	att, err := api.GetAttachment(ctx, params.SheetID.Int64(), params.AttachmentID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}
	if params.SavePath == "" {
		return AttachmentResult{Success: true, SheetID: params.SheetID, Attachment: att, DownloadURL: att.URL}, nil
	}

	dest, err := tc.resolvePath(params.SavePath)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest, err = tc.resolvePath(filepath.Join(dest, filepath.Base(att.Name)))
		if err != nil {
			return nil, err
		}
	}

	written, err := downloadTo(ctx, api, params.SheetID.Int64(), params.AttachmentID.Int64(), dest)
	if err != nil {
		return nil, err
	}

	tc.logger().Info().Int64("attachmentId", params.AttachmentID.Int64()).Str("path", dest).Int64("bytes", written).Msg("Attachment downloaded")
	return AttachmentResult{
		Success:      true,
		SheetID:      params.SheetID,
		Attachment:   att,
		DownloadURL:  att.URL,
		SavedTo:      dest,
		BytesWritten: written,
	}, nil
}

// downloadTo writes through a temp file in dest's directory and renames it
// into place; dest is untouched on failure
func downloadTo(ctx context.Context, api smartsheet.API, sheetID, attachmentID int64, dest string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, NewToolError(ErrCodeInvalidParams, fmt.Sprintf("Cannot write to save_path: %v", err), nil)
	}
	defer os.Remove(tmp.Name())

	if _, err := api.DownloadAttachment(ctx, sheetID, attachmentID, tmp); err != nil {
		tmp.Close()
		return 0, WrapAPIError(err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, NewToolError(ErrCodeInternal, err.Error(), nil)
	}
	if err := tmp.Close(); err != nil {
		return 0, NewToolError(ErrCodeInternal, err.Error(), nil)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, NewToolError(ErrCodeInternal, fmt.Sprintf("Failed to save attachment: %v", err), nil)
	}
	return info.Size(), nil
}

func HandleDeleteAttachment(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params DeleteAttachmentParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	if err := api.DeleteAttachment(ctx, params.SheetID.Int64(), params.AttachmentID.Int64()); err != nil {
		return nil, WrapAPIError(err)
	}
	return AttachmentResult{Success: true, SheetID: params.SheetID, AttachmentID: &params.AttachmentID}, nil
}

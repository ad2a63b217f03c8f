package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	attachmentSheet   = "sheet"
	attachmentRow     = "row"
	attachmentComment = "comment"
	attachmentAll     = "all"
)

type UploadAttachmentParams struct {
	SheetID        ID     `json:"sheet_id"`
	FilePath       string `json:"file_path"`
	AttachmentType string `json:"attachment_type"`
	TargetID       *ID    `json:"target_id,omitempty"`
	FileName       string `json:"file_name,omitempty"`
}

func (p *UploadAttachmentParams) Validate() error {
	if strings.TrimSpace(p.FilePath) == "" {
		return fmt.Errorf("file_path cannot be empty")
	}
	if p.AttachmentType != attachmentSheet && p.TargetID == nil {
		return fmt.Errorf("target_id is required when attachment_type is %s", p.AttachmentType)
	}
	if p.FileName != "" && p.FileName != filepath.Base(p.FileName) {
		return fmt.Errorf("file_name must not contain path separators")
	}
	return nil
}

// Name is the file name shown in Smartsheet
func (p *UploadAttachmentParams) Name() string {
	if p.FileName != "" {
		return p.FileName
	}
	return filepath.Base(p.FilePath)
}

type GetAttachmentsParams struct {
	SheetID        ID     `json:"sheet_id"`
	AttachmentType string `json:"attachment_type"`
	TargetID       *ID    `json:"target_id,omitempty"`
}

func (p *GetAttachmentsParams) Validate() error {
	if p.AttachmentType == attachmentRow && p.TargetID == nil {
		return fmt.Errorf("target_id is required when attachment_type is row")
	}
	return nil
}

type DownloadAttachmentParams struct {
	SheetID      ID     `json:"sheet_id"`
	AttachmentID ID     `json:"attachment_id"`
	SavePath     string `json:"save_path,omitempty"`
}

func (p *DownloadAttachmentParams) Validate() error { return nil }

type DeleteAttachmentParams struct {
	SheetID      ID `json:"sheet_id"`
	AttachmentID ID `json:"attachment_id"`
}

func (p *DeleteAttachmentParams) Validate() error { return nil }

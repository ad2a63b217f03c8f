package tools

import (
	"fmt"
	"strings"
)

const (
	discussionSheet = "sheet"
	discussionRow   = "row"
	discussionAll   = "all"
)

type CreateDiscussionParams struct {
	SheetID        ID     `json:"sheet_id"`
	DiscussionType string `json:"discussion_type"`
	RowID          *ID    `json:"row_id,omitempty"`
	CommentText    string `json:"comment_text"`
	Title          string `json:"title,omitempty"`
}

func (p *CreateDiscussionParams) Validate() error {
	if p.DiscussionType == discussionRow && p.RowID == nil {
		return fmt.Errorf("row_id is required when discussion_type is row")
	}
	if strings.TrimSpace(p.CommentText) == "" {
		return fmt.Errorf("comment_text cannot be empty")
	}
	return nil
}

type AddCommentParams struct {
	SheetID      ID     `json:"sheet_id"`
	DiscussionID ID     `json:"discussion_id"`
	CommentText  string `json:"comment_text"`
}

func (p *AddCommentParams) Validate() error {
	if strings.TrimSpace(p.CommentText) == "" {
		return fmt.Errorf("comment_text cannot be empty")
	}
	return nil
}

type GetDiscussionsParams struct {
	SheetID         ID     `json:"sheet_id"`
	DiscussionType  string `json:"discussion_type"`
	RowID           *ID    `json:"row_id,omitempty"`
	IncludeComments bool   `json:"include_comments"`
}

func (p *GetDiscussionsParams) Validate() error {
	if p.DiscussionType == discussionRow && p.RowID == nil {
		return fmt.Errorf("row_id is required when discussion_type is row")
	}
	return nil
}

type GetCommentsParams struct {
	SheetID      ID `json:"sheet_id"`
	DiscussionID ID `json:"discussion_id"`
}

func (p *GetCommentsParams) Validate() error { return nil }

type DeleteCommentParams struct {
	SheetID   ID `json:"sheet_id"`
	CommentID ID `json:"comment_id"`
}

func (p *DeleteCommentParams) Validate() error { return nil }

package tools

import (
	"context"
	"encoding/json"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
)

// Discussion and comment handlers

type DiscussionResult struct {
	Success    bool                   `json:"success"`
	SheetID    ID                     `json:"sheet_id"`
	Discussion *smartsheet.Discussion `json:"discussion"`
}

func HandleCreateDiscussion(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params CreateDiscussionParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	target := smartsheet.Target{Kind: smartsheet.TargetSheet}
	if params.DiscussionType == discussionRow {
		target = smartsheet.Target{Kind: smartsheet.TargetRow, ID: params.RowID.Int64()}
	}

	d, err := api.CreateDiscussion(ctx, params.SheetID.Int64(), target, smartsheet.Discussion{
		Title:   params.Title,
		Comment: &smartsheet.Comment{Text: params.CommentText},
	})
	if err != nil {
		return nil, WrapAPIError(err)
	}

	tc.logger().Info().Int64("sheetId", params.SheetID.Int64()).Str("type", params.DiscussionType).Int64("discussionId", d.ID).Msg("Discussion created")
	return DiscussionResult{Success: true, SheetID: params.SheetID, Discussion: d}, nil
}

type CommentResult struct {
	Success   bool                `json:"success"`
	SheetID   ID                  `json:"sheet_id"`
	Comment   *smartsheet.Comment `json:"comment,omitempty"`
	CommentID *ID                 `json:"comment_id,omitempty"`
}

func HandleAddComment(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params AddCommentParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	c, err := api.AddComment(ctx, params.SheetID.Int64(), params.DiscussionID.Int64(), params.CommentText)
	if err != nil {
		return nil, WrapAPIError(err)
	}
	return CommentResult{Success: true, SheetID: params.SheetID, Comment: c}, nil
}

type DiscussionsResult struct {
	Success          bool                    `json:"success"`
	SheetID          ID                      `json:"sheet_id"`
	DiscussionType   string                  `json:"discussion_type"`
	Discussions      []smartsheet.Discussion `json:"discussions"`
	TotalDiscussions int                     `json:"total_discussions"`
}

func HandleGetDiscussions(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params GetDiscussionsParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	var target *smartsheet.Target
	if params.DiscussionType == discussionRow {
		target = &smartsheet.Target{Kind: smartsheet.TargetRow, ID: params.RowID.Int64()}
	}

	list, err := api.ListDiscussions(ctx, params.SheetID.Int64(), target, params.IncludeComments)
	if err != nil {
		return nil, WrapAPIError(err)
	}

	discussions := make([]smartsheet.Discussion, 0, len(list))
	for _, d := range list {
		if params.DiscussionType == discussionSheet && d.ParentType != "SHEET" {
			continue
		}
		discussions = append(discussions, d)
	}

	return DiscussionsResult{
		Success:          true,
		SheetID:          params.SheetID,
		DiscussionType:   params.DiscussionType,
		Discussions:      discussions,
		TotalDiscussions: len(discussions),
	}, nil
}

type CommentsResult struct {
	Success       bool                 `json:"success"`
	SheetID       ID                   `json:"sheet_id"`
	DiscussionID  ID                   `json:"discussion_id"`
	Comments      []smartsheet.Comment `json:"comments"`
	TotalComments int                  `json:"total_comments"`
}

func HandleGetComments(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params GetCommentsParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	d, err := api.GetDiscussion(ctx, params.SheetID.Int64(), params.DiscussionID.Int64())
	if err != nil {
		return nil, WrapAPIError(err)
	}

	comments := d.Comments
	if comments == nil {
		comments = []smartsheet.Comment{}
	}
	return CommentsResult{
		Success:       true,
		SheetID:       params.SheetID,
		DiscussionID:  params.DiscussionID,
		Comments:      comments,
		TotalComments: len(comments),
	}, nil
}

func HandleDeleteComment(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var params DeleteCommentParams
	if err := bindParams(raw, &params); err != nil {
		return nil, err
	}
	api, err := tc.api()
	if err != nil {
		return nil, err
	}

	if err := api.DeleteComment(ctx, params.SheetID.Int64(), params.CommentID.Int64()); err != nil {
		return nil, WrapAPIError(err)
	}
	return CommentResult{Success: true, SheetID: params.SheetID, CommentID: &params.CommentID}, nil
}

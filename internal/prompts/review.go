package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the review-document MCP prompt. It asks the model
// to summarize where an uploaded document stands.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("review-document",
		mcp.WithPromptDescription(
			"Check an uploaded document: current text, revision, produced downloads and what to do next.",
		),
		mcp.WithArgument("doc_id",
			mcp.ArgumentDescription("Document ID from upload_document"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the review-document prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	docID := req.Params.Arguments["doc_id"]
	if docID == "" {
		return nil, fmt.Errorf("doc_id is required")
	}

	return &mcp.GetPromptResult{
		Description: "Review document " + docID,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `get_document` with doc_id='%s'.\n\n"+
						"Then:\n"+
						"1. Summarize the document in two sentences\n"+
						"2. Tell me how many changes have been applied (the revision) and list the download links\n"+
						"3. Suggest which request to run next with `analyze_and_suggest`",
					docID,
				)),
			},
		},
	}, nil
}

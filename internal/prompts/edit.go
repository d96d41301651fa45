// Package prompts implements the MCP prompts for document editing.
//
// Prompts are user-triggered workflows (like slash commands) that tell
// the model which tools to call in which order. Unlike tools, the user
// initiates them.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// EditPrompt handles the edit-document MCP prompt. It walks the model
// through upload, analyze, review and apply.
type EditPrompt struct{}

// NewEditPrompt creates an EditPrompt.
func NewEditPrompt() *EditPrompt {
	return &EditPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *EditPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("edit-document",
		mcp.WithPromptDescription(
			"Edit a Word or text document: upload it, get suggestions for a request, "+
				"pick the ones to keep and download the modified copy.",
		),
		mcp.WithArgument("filename",
			mcp.ArgumentDescription("Name of the document you will attach"),
		),
		mcp.WithArgument("request",
			mcp.ArgumentDescription("What to change, e.g. 'make it more formal' or 'make it more concise'. Default: make it more formal"),
		),
	)
}

// Handle processes the edit-document prompt request.
func (p *EditPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	filename := "my document"
	request := "make it more formal"
	if args := req.Params.Arguments; args != nil {
		if v := args["filename"]; v != "" {
			filename = v
		}
		if v := args["request"]; v != "" {
			request = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Edit %s: %s", filename, request),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to edit '%s'. My request: %s.\n\n"+
						"Please:\n"+
						"1. Run `upload_document` with filename='%s' and the file content base64-encoded (or a url)\n"+
						"2. Run `analyze_and_suggest` with the returned doc_id and request='%s'\n"+
						"3. Show me each suggestion (original -> suggested, with the reason) and ask which to keep\n"+
						"4. Run `apply_changes` with only the suggestion_ids I accept\n"+
						"5. Show me the changed paragraphs and the download link\n\n"+
						"If apply reports stale suggestions, run analyze_and_suggest again; "+
						"if it reports busy, wait a moment and retry.",
					filename, request, filename, request,
				)),
			},
		},
	}, nil
}

// Package tools implements the MCP tool handlers for document editing.
//
// Each tool is a struct holding the editor it delegates to, with
// Definition() returning the mcp.Tool schema and Handle() processing a
// call. Caller mistakes (unknown ids, stale suggestions, bad base64) come
// back as error results the model can read and correct. Only
// infrastructure failures surface as Go errors.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/changes"
	"github.com/HendryAvila/docsmith/internal/docerr"
)

// errorResult converts an editor error into a tool result. The text is
// prefixed with the error code and the structured content carries the
// same {code, message, details} shape the REST API returns.
func errorResult(err error) (*mcp.CallToolResult, error) {
	f := docerr.FailureOf(err)
	if f.Code == docerr.CodeInternal {
		return nil, err
	}
	r := mcp.NewToolResultStructured(f, fmt.Sprintf("[%s] %s", f.Code, f.Message))
	r.IsError = true
	return r, nil
}

// stringsArg extracts a string array argument. A single string is accepted
// as a one-element list since models sometimes send one.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	switch v := req.GetArguments()[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// renderChanges formats unit changes as a minimal diff.
func renderChanges(units []changes.UnitChange) string {
	var b strings.Builder
	for _, c := range units {
		fmt.Fprintf(&b, "\n\nParagraph %d:\n- %s\n+ %s", c.Index, c.Before, c.After)
	}
	return b.String()
}

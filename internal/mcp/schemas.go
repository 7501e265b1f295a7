package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSessionTool returns the tool definition for create_session
func createSessionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_session",
		Description: "Create a new document chat session with its own isolated index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Human-readable session name",
				},
			},
		},
	}
}

// indexDocumentTool returns the tool definition for index_document
func indexDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_document",
		Description: "Chunk, embed, and index a document's text into a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Target session ID",
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Display name of the document",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full document text",
				},
				"file_id": map[string]interface{}{
					"type":        "string",
					"description": "Stable file identifier; generated when omitted",
				},
			},
			Required: []string{"session_id", "filename", "content"},
		},
	}
}

// queryDocumentsTool returns the tool definition for query_documents
func queryDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_documents",
		Description: "Retrieve the chunks most relevant to a query from a session's documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language query",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"file_ids": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these file IDs",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum similarity score threshold (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"session_id", "query"},
		},
	}
}

// askTool returns the tool definition for ask
func askTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from a session's documents, citing the retrieved sources",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to answer from",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of chunks used as context (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"file_ids": map[string]interface{}{
					"type":        "array",
					"description": "Restrict context to these file IDs",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"session_id", "question"},
		},
	}
}

// sessionStatusTool returns the tool definition for session_status
func sessionStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "session_status",
		Description: "Report a session's indexed files, chunk counts, and cache occupancy",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to inspect",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

// clearSessionTool returns the tool definition for clear_session
func clearSessionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_session",
		Description: "Drop a session's index, cached queries, and file records",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to clear",
				},
			},
			Required: []string{"session_id"},
		},
	}
}

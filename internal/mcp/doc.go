// Package mcp implements the Model Context Protocol (MCP) server for
// the document chat engine.
//
// The server exposes six tools to MCP clients:
//   - create_session: Create an isolated document chat session
//   - index_document: Chunk, embed, and index a document into a session
//   - query_documents: Retrieve the chunks most relevant to a query
//   - ask: Answer a question from a session's documents with sources
//   - session_status: Report indexed files and chunk counts
//   - clear_session: Drop a session's index and cached queries
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: query_documents
//
//	Request:
//	{
//	  "name": "query_documents",
//	  "arguments": {
//	    "session_id": "a2c4...",
//	    "query": "what does the contract say about termination?",
//	    "top_k": 5,
//	    "file_ids": ["f1"],
//	    "min_score": 0.5
//	  }
//	}
//
//	Response:
//	{
//	  "query": "what does the contract say about termination?",
//	  "reranked": false,
//	  "chunks": [
//	    {
//	      "chunk_id": "f1:3",
//	      "file_id": "f1",
//	      "filename": "contract.pdf",
//	      "content": "Either party may terminate...",
//	      "similarity": 0.83
//	    }
//	  ]
//	}
//
// # Error Handling
//
// Errors use standard JSON-RPC codes plus a few tool-specific ones:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (storage, embedding, retrieval)
//   - -32001: Session not found
//   - -32004: Empty query or question
//   - -32005: Answer generation not configured
package mcp

// Package mcp exposes one document session to MCP clients over stdio.
package mcp

import "errors"

var (
	ErrMissingIngestor = errors.New("mcp: document ingestor is required")
	ErrMissingCatalog  = errors.New("mcp: document catalog is required")
	ErrMissingAnswerer = errors.New("mcp: question answerer is required")
	ErrMissingSession  = errors.New("mcp: session id is required")
)

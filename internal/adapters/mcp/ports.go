package mcp

import (
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
)

// Ports aggregates the inbound ports the MCP server drives. Every tool
// works against SessionID.
type Ports struct {
	SessionID string

	Ingest  ports.DocumentIngestor
	Catalog ports.DocumentCatalog
	QA      ports.QuestionAnswerer
}

func (p *Ports) Validate() error {
	switch {
	case p.SessionID == "":
		return ErrMissingSession
	case p.Ingest == nil:
		return ErrMissingIngestor
	case p.Catalog == nil:
		return ErrMissingCatalog
	case p.QA == nil:
		return ErrMissingAnswerer
	}
	return nil
}

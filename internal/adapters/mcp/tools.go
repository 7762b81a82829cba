package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const (
	defaultExampleCount = 5
	maxExampleCount     = 10
)

type IngestInput struct {
	Path string `json:"path" jsonschema:"local path of a PDF, DOCX or TXT file"`
}

type DocumentOutput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

type AskInput struct {
	Question string `json:"question" jsonschema:"question about the ingested documents"`
}

type CitationOutput struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

type AskOutput struct {
	QueryID   string           `json:"query_id,omitempty"`
	Answer    string           `json:"answer"`
	Citations []CitationOutput `json:"citations"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

type RemoveDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"id returned by ingest_document or list_documents"`
}

type RemoveDocumentOutput struct {
	Removed string `json:"removed"`
}

type ExampleQuestionsInput struct {
	Count int `json:"count,omitempty" jsonschema:"number of questions to suggest (default 5, max 10)"`
}

type ExampleQuestionsOutput struct {
	Questions []string `json:"questions"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Extract, chunk and index a local PDF, DOCX or TXT file",
	}, s.handleIngest)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the ingested documents with page citations",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents ingested in this session",
	}, s.handleListDocuments)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove one document and its chunks from the session",
	}, s.handleRemoveDocument)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "example_questions",
		Description: "Suggest questions that the ingested documents can answer",
	}, s.handleExampleQuestions)
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, DocumentOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return nil, DocumentOutput{}, errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("read %s: %w", path, err)
	}

	info, err := s.ports.Ingest.Ingest(ctx, s.ports.SessionID, filepath.Base(path), data)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(*info), nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.QA.Answer(ctx, s.ports.SessionID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	out := AskOutput{
		QueryID:   answer.QueryID,
		Answer:    answer.Text,
		Citations: make([]CitationOutput, 0, len(answer.Citations)),
	}
	for _, c := range answer.Citations {
		out.Citations = append(out.Citations, CitationOutput{Filename: c.Filename, PageNumber: c.PageNumber, Text: c.Text})
	}
	return nil, out, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Catalog.ListDocuments(ctx, s.ports.SessionID)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	out := ListDocumentsOutput{Documents: make([]DocumentOutput, len(docs)), Count: len(docs)}
	for i, d := range docs {
		out.Documents[i] = toDocumentOutput(d)
	}
	return nil, out, nil
}

func (s *Server) handleRemoveDocument(ctx context.Context, _ *mcp.CallToolRequest, input RemoveDocumentInput) (*mcp.CallToolResult, RemoveDocumentOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, RemoveDocumentOutput{}, errors.New("document_id is required")
	}
	if err := s.ports.Catalog.RemoveDocument(ctx, s.ports.SessionID, input.DocumentID); err != nil {
		return nil, RemoveDocumentOutput{}, err
	}
	return nil, RemoveDocumentOutput{Removed: input.DocumentID}, nil
}

func (s *Server) handleExampleQuestions(ctx context.Context, _ *mcp.CallToolRequest, input ExampleQuestionsInput) (*mcp.CallToolResult, ExampleQuestionsOutput, error) {
	count := input.Count
	if count <= 0 {
		count = defaultExampleCount
	}
	if count > maxExampleCount {
		count = maxExampleCount
	}
	questions, err := s.ports.QA.ExampleQuestions(ctx, s.ports.SessionID, count)
	if err != nil {
		return nil, ExampleQuestionsOutput{}, err
	}
	return nil, ExampleQuestionsOutput{Questions: questions}, nil
}

func toDocumentOutput(info domain.DocumentInfo) DocumentOutput {
	return DocumentOutput{
		DocumentID: info.ID,
		Filename:   info.Filename,
		Format:     string(info.Format),
		PageCount:  info.PageCount,
		ChunkCount: info.ChunkCount,
	}
}

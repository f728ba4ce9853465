// Package mcpadapter exposes the support pipeline as MCP tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

const serverName = "support-agent"

type Server struct {
	agent     ports.QueryProcessor
	knowledge ports.KnowledgeService
	logger    *slog.Logger
	mcp       *server.MCPServer

	agentMu sync.Mutex
}

func NewServer(agent ports.QueryProcessor, knowledge ports.KnowledgeService, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		agent:     agent,
		knowledge: knowledge,
		logger:    logger,
		mcp: server.NewMCPServer(
			serverName,
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks until stdin is closed.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("answer_customer_query",
		mcp.WithDescription("Answer a customer support question using the FAQ knowledge base. Returns the answer, cited sources, intent and validation outcome."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The customer's question")),
	), s.answerCustomerQuery)

	s.mcp.AddTool(mcp.NewTool("search_faqs",
		mcp.WithDescription("Search the FAQ knowledge base by keyword. An empty keyword lists every entry."),
		mcp.WithString("keyword", mcp.Description("Case-insensitive text matched against questions and answers")),
	), s.searchFAQs)

	s.mcp.AddTool(mcp.NewTool("add_faq",
		mcp.WithDescription("Add a question/answer pair to the knowledge base."),
		mcp.WithString("question", mcp.Required()),
		mcp.WithString("answer", mcp.Required()),
		mcp.WithString("category", mcp.Description("Defaults to general")),
		mcp.WithBoolean("verified", mcp.Description("Only verified entries are preferred during retrieval")),
	), s.addFAQ)

	s.mcp.AddTool(mcp.NewTool("reset_conversation",
		mcp.WithDescription("Forget the conversation history."),
	), s.resetConversation)

	s.mcp.AddTool(mcp.NewTool("session_summary",
		mcp.WithDescription("Report interactions, token usage and estimated cost for this session."),
	), s.sessionSummary)
}

func (s *Server) answerCustomerQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.agentMu.Lock()
	result := s.agent.ProcessQuery(ctx, query)
	s.agentMu.Unlock()

	return jsonResult(result)
}

func (s *Server) searchFAQs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.knowledge.SearchByKeyword(ctx, req.GetString("keyword", ""))
	if err != nil {
		s.logger.Error("search faqs failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"faqs": items, "count": len(items)})
}

func (s *Server) addFAQ(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	item, err := s.knowledge.AddFAQ(ctx, domain.FAQDraft{
		Question: question,
		Answer:   answer,
		Category: req.GetString("category", ""),
		Verified: req.GetBool("verified", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(item)
}

func (s *Server) resetConversation(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.agentMu.Lock()
	s.agent.ResetConversation()
	s.agentMu.Unlock()
	return mcp.NewToolResultText("conversation history cleared"), nil
}

func (s *Server) sessionSummary(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.agent.SessionSummary())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

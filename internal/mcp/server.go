package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wesm/github-issue-chat/internal/models"
)

// DefaultCallerID identifies MCP clients that do not pass caller_id
const DefaultCallerID = "mcp"

// ChatHandler answers a chat message from a caller
type ChatHandler interface {
	Handle(ctx context.Context, callerID, message string) string
}

// NotificationLister reads the delivered-notification journal
type NotificationLister interface {
	ListNotifications(ctx context.Context, callerID string, limit int) ([]*models.Notification, error)
}

// Server exposes the chat interpreter as MCP tools.
type Server struct {
	chat    ChatHandler
	journal NotificationLister
	version string
}

// NewServer creates the MCP server wrapper. journal may be nil.
func NewServer(chat ChatHandler, journal NotificationLister, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{chat: chat, journal: journal, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("issuechat", s.version, server.WithToolCapabilities(true))
	srv.AddTool(s.chatTool())
	srv.AddTool(s.notificationsTool())
	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// chatExamples are advertised in the issues_chat description
var chatExamples = []string{
	"show issues for repo owner/name label:bug",
	"show issue #12 in repo owner/name",
	"create issue in repo owner/name title: Crash on save body: Steps to reproduce",
	"close issue #12 in repo owner/name",
	"add comment to #12 in repo owner/name: Fixed in main",
	"setup notifications for repo owner/name",
}

// issues_chat
func (s *Server) chatTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issues_chat",
		mcp.WithDescription("Send a natural-language command about GitHub issues, e.g. '"+
			strings.Join(chatExamples, "', '")+"'. The repository follows the word 'repo'; "+
			"without it the configured default repository is used. Returns the chat response text."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Chat message")),
		mcp.WithString("caller_id", mcp.Description("Caller identity used for notification subscriptions (default: mcp)")),
	)
	return tool, s.handleChat
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	callerID := request.GetString("caller_id", DefaultCallerID)
	if callerID == "" {
		callerID = DefaultCallerID
	}
	return mcp.NewToolResultText(s.chat.Handle(ctx, callerID, message)), nil
}

// issues_notifications
func (s *Server) notificationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issues_notifications",
		mcp.WithDescription("List new-issue notifications delivered to a caller, newest first. Returns a JSON array."),
		mcp.WithString("caller_id", mcp.Description("Caller identity (default: mcp)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notifications (default: 20)")),
	)
	return tool, s.handleNotifications
}

func (s *Server) handleNotifications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callerID := request.GetString("caller_id", DefaultCallerID)
	if callerID == "" {
		callerID = DefaultCallerID
	}
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	notifications := []*models.Notification{}
	if s.journal != nil {
		found, err := s.journal.ListNotifications(ctx, callerID, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list notifications: %v", err)), nil
		}
		if found != nil {
			notifications = found
		}
	}

	data, err := json.Marshal(notifications)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal notifications: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

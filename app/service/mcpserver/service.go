package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"persona/app/config"
	"persona/app/service/conversation"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	serverName    = "persona"
	serverVersion = "1.0.0"
	chatToolName  = "chat"
)

type Replier interface {
	Reply(ctx context.Context, message string, history []conversation.Message) (string, error)
}

type chatArguments struct {
	Message string                 `json:"message" validate:"required"`
	History []conversation.Message `json:"history" validate:"dive"`
}

// Service exposes the turn handler as an MCP tool over stdio.
type Service struct {
	replier  Replier
	validate *validator.Validate
	server   *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Persona.Name, do.MustInvoke[*conversation.Service](di)), nil
}

func NewService(personaName string, replier Replier) *Service {
	s := &Service{
		replier:  replier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		server: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.server.AddTool(
		mcp.NewTool(chatToolName,
			mcp.WithDescription("Ask "+personaName+" a question about their career, background, skills and experience."),
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("The new message from the user"),
			),
			mcp.WithArray("history",
				mcp.Description("Previous messages of the conversation, oldest first"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"role":    map[string]any{"type": "string", "enum": []string{"user", "assistant"}},
						"content": map[string]any{"type": "string"},
					},
					"required": []string{"role", "content"},
				}),
			),
		),
		s.handleChat,
	)

	return s
}

// Run serves MCP over in/out until ctx is cancelled or the input is closed.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("MCP server started", "tool", chatToolName)

	if err := server.NewStdioServer(s.server).Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return oops.In("mcpserver").Wrapf(err, "listen")
	}

	return nil
}

func (s *Service) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := s.parseArguments(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reply, err := s.replier.Reply(ctx, args.Message, args.History)
	if err != nil {
		slog.Error("Turn failed", "error", err)
		return mcp.NewToolResultErrorFromErr("failed to generate a reply", err), nil
	}

	return mcp.NewToolResultText(reply), nil
}

func (s *Service) parseArguments(request mcp.CallToolRequest) (*chatArguments, error) {
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return nil, oops.Wrapf(err, "invalid arguments")
	}

	var args chatArguments
	if err = json.Unmarshal(raw, &args); err != nil {
		return nil, oops.Wrapf(err, "invalid arguments")
	}

	if err = s.validate.Struct(args); err != nil {
		return nil, oops.Wrapf(err, "invalid arguments")
	}

	return &args, nil
}

// Package mcpserver exposes reminders as Model Context Protocol tools so an
// assistant can list, inspect, and create location reminders.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/viewmodel"
)

const serverName = "placereminder"

// Repository is the reminder store behind the tools.
// Implemented by [reminders.Repository].
type Repository interface {
	GetReminders(ctx context.Context) model.Result[[]model.Reminder]
	GetReminder(ctx context.Context, id string) model.Result[model.Reminder]
	SaveReminder(ctx context.Context, r model.Reminder) error
	DeleteAllReminders(ctx context.Context) error
}

// Geofences is the registration set behind the tools.
// Implemented by [geofence.Registry].
type Geofences interface {
	geofence.Registrar
	RemoveAll(ctx context.Context) error
}

// Server is the MCP server for location reminders.
type Server struct {
	mcpServer *server.MCPServer
	repo      Repository
	geofences Geofences
	opts      geofence.Options
	log       *slog.Logger
}

// New creates the server and registers its tools.
func New(repo Repository, geofences Geofences, opts geofence.Options, version string, logger *slog.Logger) *Server {
	s := &Server{
		repo:      repo,
		geofences: geofences,
		opts:      opts,
		log:       logger,
	}
	s.mcpServer = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List all location reminders"),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_reminder",
			mcp.WithDescription("Get one location reminder by id"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleGetReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("save_reminder",
			mcp.WithDescription("Create or update a location reminder and register its geofence"),
			mcp.WithString("title", mcp.Required(), mcp.Description("Reminder title")),
			mcp.WithString("location", mcp.Required(), mcp.Description("Name of the place, e.g. \"Corner shop\"")),
			mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Latitude of the place in degrees")),
			mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Longitude of the place in degrees")),
			mcp.WithString("description", mcp.Description("Optional description")),
			mcp.WithString("id", mcp.Description("Existing reminder ID to update; omit to create")),
		),
		s.handleSaveReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_all_reminders",
			mcp.WithDescription("Delete every reminder and its geofence"),
		),
		s.handleDeleteAll,
	)
}

func (s *Server) handleListReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vm := viewmodel.NewRemindersList(ctx, s.repo, s.log)
	defer vm.Close()

	if rerr := vm.Load(ctx); rerr != nil {
		return mcp.NewToolResultError(rerr.Message), nil
	}
	items, _ := vm.Reminders.Get()
	if len(items) == 0 {
		return mcp.NewToolResultText("No reminders."), nil
	}
	out := make([]reminderJSON, 0, len(items))
	for _, it := range items {
		out = append(out, toJSON(it))
	}
	return jsonResult(out)
}

func (s *Server) handleGetReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	res := s.repo.GetReminder(ctx, id)
	rem, ok := res.Value()
	if !ok {
		return mcp.NewToolResultError(res.Err().Message), nil
	}
	return jsonResult(toJSON(model.ItemFromReminder(rem)))
}

func (s *Server) handleSaveReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item := model.ReminderItem{
		ID:          req.GetString("id", ""),
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Location:    req.GetString("location", ""),
	}
	args := req.GetArguments()
	if _, ok := args["latitude"]; ok {
		item.Latitude = model.Float(req.GetFloat("latitude", 0))
	}
	if _, ok := args["longitude"]; ok {
		item.Longitude = model.Float(req.GetFloat("longitude", 0))
	}

	vm := viewmodel.NewSaveReminder(ctx, s.repo, s.geofences, s.opts, s.log)
	defer vm.Close()

	res := vm.Save(ctx, item)
	if res.Outcome != viewmodel.OutcomeSaved {
		return mcp.NewToolResultError(res.Message), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (id %s)", res.Message, res.Item.ID)), nil
}

func (s *Server) handleDeleteAll(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.repo.DeleteAllReminders(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminders: %v", err)), nil
	}
	if err := s.geofences.RemoveAll(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to remove geofences: %s", geofence.Message(err))), nil
	}
	return mcp.NewToolResultText("All reminders deleted."), nil
}

type reminderJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func toJSON(item model.ReminderItem) reminderJSON {
	return reminderJSON{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Location:    item.Location,
		Latitude:    item.Latitude,
		Longitude:   item.Longitude,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(output)), nil
}

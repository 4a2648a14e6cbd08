// Package mcp exposes the catalog, journeys and ledger as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/harvestpath/harvestpath/internal/infrastructure/wiring"
	"github.com/harvestpath/harvestpath/pkg/application"
	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
)

type Server struct {
	mcpServer *mcp.Server
	journeys  *application.JourneyService
	ledger    *application.LedgerService
	catalog   *catalog.Catalog
	logger    *slog.Logger
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients without internal details.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// NewServer builds the services for root and registers the tools.
func NewServer(ctx context.Context, root string, logger *slog.Logger) (*Server, error) {
	services, err := wiring.BuildAppServices(ctx, root, logger)
	if services == nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	if err != nil && logger != nil {
		logger.Warn("using fallback services", "error", err)
	}
	return NewServerWithServices(services.Journeys, services.Ledger, logger), nil
}

// NewServerWithServices registers the tools over already wired services.
func NewServerWithServices(journeys *application.JourneyService, ledger *application.LedgerService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	info := mcp.ServerInfo{
		Name:    "harvestpath",
		Version: Version,
	}
	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("HarvestPath MCP Server"),
			mcp.WithDescription("HarvestPath exposes crop workflows, cultivation journeys and reward balances to MCP clients."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("List crops, start a journey, then submit one photo per unlocked step. Every journey tool needs a user_id."),
		),
		journeys: journeys,
		ledger:   ledger,
		catalog:  journeys.Catalog(),
		logger:   logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("harvestpath_list_crops").
		Description("List the crops in the catalog, optionally filtered by season (Kharif, Rabi, Zaid)").
		Handler(s.handleListCrops)

	s.mcpServer.Tool("harvestpath_get_crop").
		Description("Get a crop with its full cultivation workflow").
		Handler(s.handleGetCrop)

	s.mcpServer.Tool("harvestpath_start_journey").
		Description("Start a cultivation journey for a crop, or return the user's active one").
		Handler(s.handleStartJourney)

	s.mcpServer.Tool("harvestpath_list_journeys").
		Description("List a user's journeys with their progress").
		Handler(s.handleListJourneys)

	s.mcpServer.Tool("harvestpath_get_journey").
		Description("Get a journey overview: step locks, progress, session XP and ledger balance").
		Handler(s.handleGetJourney)

	s.mcpServer.Tool("harvestpath_submit_proof").
		Description("Submit a base64 photo as proof for an unlocked step and return the verdict").
		Handler(s.handleSubmitProof)

	s.mcpServer.Tool("harvestpath_reset_journey").
		Description("Clear all progress of a journey and start a new run. Earned points are kept").
		Handler(s.handleResetJourney)

	s.mcpServer.Tool("harvestpath_adjust_health").
		Description("Apply a crop health delta to an active journey. Health 0 fails the journey").
		Handler(s.handleAdjustHealth)

	s.mcpServer.Tool("harvestpath_get_balance").
		Description("Get a user's points and eco points").
		Handler(s.handleGetBalance)

	s.mcpServer.Tool("harvestpath_ledger_history").
		Description("List a user's reward grants, most recent last").
		Handler(s.handleLedgerHistory)
}

func (s *Server) StartStdio() error {
	return s.ServeStdio(context.Background())
}

func (s *Server) StartHTTP(addr string) error {
	return s.ServeHTTP(context.Background(), addr)
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

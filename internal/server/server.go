// Package server assembles the Fiber application: middleware stack and
// route table.
package server

import (
	"log/slog"
	"strings"

	"ngo-portal-backend/internal/admin"
	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/config"
	"ngo-portal-backend/internal/dashboard"
	"ngo-portal-backend/internal/financial"
	"ngo-portal-backend/internal/grants"
	"ngo-portal-backend/internal/ledger"
	"ngo-portal-backend/internal/logging"
	"ngo-portal-backend/internal/performance"
	"ngo-portal-backend/internal/project"
	"ngo-portal-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// New builds the app. The store must already be installed in database.DB.
func New(cfg *config.Config, log *slog.Logger, rec *audit.Recorder) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ngo-portal",
		ErrorHandler:          apperr.Handler(log),
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{
		ContextKey: logging.RequestIDKey,
		Generator:  uuid.NewString,
	}))
	app.Use(logging.AccessLog(log))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Use(auth.SessionMiddleware(cfg.JWTSecret, log))

	api.Get("/auth/me", auth.MeHandler())

	protected := api.Group("", auth.RequireIdentity())

	protected.Get("/users", admin.ListUsersHandler())

	// Performance
	policy := performance.Policy{VarianceThreshold: cfg.VarianceThreshold}
	protected.Get("/financials", financial.PerformanceHandler(policy))
	protected.Get("/dashboard/spending-chart", dashboard.SpendingChartHandler())

	// Projects, tasks, milestones
	protected.Get("/projects", project.ListProjectsHandler())
	protected.Post("/projects", project.CreateProjectHandler(rec))
	protected.Get("/projects/:id", project.GetProjectHandler())
	protected.Put("/projects/:id", project.UpdateProjectHandler(rec))
	protected.Delete("/projects/:id", project.DeleteProjectHandler(rec))
	protected.Get("/projects/:id/milestones", project.ListMilestonesHandler())
	protected.Post("/projects/:id/milestones", project.CreateMilestoneHandler(rec))
	protected.Put("/milestones/:milestoneId", project.UpdateMilestoneHandler(rec))
	protected.Delete("/milestones/:milestoneId", project.DeleteMilestoneHandler(rec))

	docs := storage.Dir{Root: cfg.UploadDir}
	protected.Get("/projects/:id/documents", project.ListDocumentsHandler())
	protected.Post("/projects/:id/documents", project.UploadDocumentHandler(rec, docs, log))
	protected.Delete("/documents/:documentId", project.DeleteDocumentHandler(rec, docs, log))
	protected.Static("/files", cfg.UploadDir)

	protected.Get("/tasks", project.ListTasksHandler())
	protected.Post("/tasks", project.CreateTaskHandler(rec))
	protected.Put("/tasks/:id", project.UpdateTaskHandler(rec))
	protected.Delete("/tasks/:id", project.DeleteTaskHandler(rec))

	// Ledger
	protected.Get("/budgets", ledger.ListBudgetAllocationsHandler())
	protected.Post("/budgets", ledger.CreateBudgetAllocationHandler(rec))
	protected.Get("/expenditures", ledger.ListExpendituresHandler())
	protected.Post("/expenditures", ledger.CreateExpenditureHandler(rec))
	protected.Get("/disbursements", ledger.ListDisbursementsHandler())
	protected.Post("/disbursements", ledger.CreateDisbursementHandler(rec))

	// Donors and proposals
	protected.Get("/donors", grants.ListDonorsHandler())
	protected.Post("/donors", grants.CreateDonorHandler(rec))
	protected.Get("/donors/:id", grants.GetDonorHandler())
	protected.Put("/donors/:id", grants.UpdateDonorHandler(rec))
	protected.Delete("/donors/:id", grants.DeleteDonorHandler(rec))

	protected.Get("/proposals", grants.ListProposalsHandler())
	protected.Get("/proposals/pipeline", grants.PipelineHandler())
	protected.Post("/proposals", grants.CreateProposalHandler(rec))
	protected.Put("/proposals/:id", grants.UpdateProposalHandler(rec))
	protected.Delete("/proposals/:id", grants.DeleteProposalHandler(rec))

	// Editors only
	protected.Get("/audit-logs", auth.RequireEditAccess(), audit.ListAuditLogsHandler())
	protected.Get("/admin/reconcile", auth.RequireEditAccess(), ledger.ReconcileHandler())

	return app
}

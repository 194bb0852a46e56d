package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/api/http/handlers"
	"github.com/deskforge/servicedesk/internal/auth"
	"github.com/deskforge/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Repair         *handlers.RepairHandler
	Comments       *handlers.CommentsHandler
	Assist         *handlers.AssistHandler
	Directory      *handlers.DirectoryHandler
	Export         *handlers.ExportHandler
	Upload         *handlers.UploadHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	staffOnly := auth.RequireStaff()
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/export/excel", staffOnly, cfg.Export.Excel)
	tickets.Get("/export/pdf", staffOnly, cfg.Export.PDF)
	tickets.Post("/bulk/assign", staffOnly, cfg.Tickets.BulkAssign)
	tickets.Post("/bulk/status", staffOnly, cfg.Tickets.BulkStatus)
	tickets.Post("/bulk/delete", adminOnly, cfg.Tickets.BulkDelete)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", adminOnly, cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/status", staffOnly, cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/pickup", staffOnly, cfg.Tickets.SelfAssign)
	tickets.Patch("/:id/board", staffOnly, cfg.Tickets.BoardDrop)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Post("/:id/history", staffOnly, cfg.Tickets.AppendHistory)

	tickets.Post("/:id/repair", staffOnly, cfg.Repair.Init)
	tickets.Get("/:id/repair", cfg.Repair.Get)
	tickets.Post("/:id/repair/advance", staffOnly, cfg.Repair.Advance)
	tickets.Post("/:id/repair/report", staffOnly, cfg.Repair.Report)
	tickets.Post("/:id/repair/technician", staffOnly, cfg.Repair.AssignTechnician)

	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/comments", cfg.Comments.AddComment)
	tickets.Get("/:id/feedback", cfg.Comments.GetFeedback)
	tickets.Post("/:id/feedback", cfg.Comments.SubmitFeedback)

	api.Get("/board", staffOnly, cfg.Tickets.Board)

	assist := api.Group("/assist")
	assist.Post("/polish", cfg.Assist.Polish)
	assist.Post("/summarize", staffOnly, cfg.Assist.Summarize)
	assist.Post("/suggest", staffOnly, cfg.Assist.Suggest)
	assist.Get("/categorize", cfg.Assist.Categorize)
	assist.Get("/kb", cfg.Assist.SearchKB)
	assist.Get("/similar", cfg.Assist.Similar)

	api.Get("/categories", cfg.Directory.ListCategories)
	api.Get("/kb", cfg.Directory.SearchKB)

	api.Post("/uploads", cfg.Upload.Upload)

	users := api.Group("/users")
	users.Get("/technicians", staffOnly, cfg.Users.ListTechnicians)
	users.Post("/", adminOnly, cfg.Users.Provision)
}

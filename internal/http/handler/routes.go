package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fileflow/internal/http/middleware"
	"fileflow/internal/service"
	"fileflow/internal/storage"
)

// Dependencies are the collaborators the routes are wired to.
type Dependencies struct {
	DB        *sql.DB
	Ledger    service.LedgerService
	Content   service.ContentService
	JWTSecret []byte
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Local is set when the local byte store is in use; it serves its signed URLs.
	Local *storage.Local
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	app.Get("/swagger/*", swagger.HandlerDefault)
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.Local != nil {
		app.Put(storage.LocalRoutePrefix+"*", PutLocalObject(d.Local))
		app.Get(storage.LocalRoutePrefix+"*", GetLocalObject(d.Local))
	}

	api := app.Group("/api/v1", middleware.Auth(d.JWTSecret))

	shares := api.Group("/shares")
	shares.Post("/", SendShare(d.Ledger))
	shares.Get("/sent", ListSentShares(d.Ledger))
	shares.Get("/received", ListReceivedShares(d.Ledger))
	shares.Get("/:transaction_id", GetShare(d.Ledger))
	shares.Post("/:transaction_id/view", ViewShare(d.Ledger))
	shares.Get("/:transaction_id/receipt", GetReceipt(d.Ledger))

	files := api.Group("/files")
	files.Post("/upload/init", InitUpload(d.Content))
	files.Post("/upload/:id/complete", CompleteUpload(d.Content))
	files.Delete("/upload/:id", AbortUpload(d.Content))
	files.Get("/", ListFiles(d.Content))
	files.Get("/:id/download", DownloadFile(d.Content))
	files.Delete("/:id", DeleteFile(d.Content))
}

// Package app assembles the Fiber application: middleware chain, service
// construction, and route registration.
package app

import (
	"ropa-backend/internal/activities"
	"ropa-backend/internal/assets"
	"ropa-backend/internal/classification"
	"ropa-backend/internal/config"
	"ropa-backend/internal/health"
	"ropa-backend/internal/locations"
	"ropa-backend/internal/middleware"
	"ropa-backend/internal/org"
	"ropa-backend/internal/recipients"
	"ropa-backend/internal/refdata"
	"ropa-backend/internal/transfers"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. The caller owns the DB handle (opened in main, or an
// in-memory one in tests).
func CreateApp(cfg *config.Config, db *gorm.DB) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))

	// Org session (Redis); the Redis client is reused for the health marker.
	sessionHandler, rdb, err := middleware.OrgSession(middleware.OrgSessionConfig{
		RedisURL:       cfg.RedisURL,
		AllowOrgHeader: cfg.AllowOrgHeader,
	})
	if err != nil {
		return nil, err
	}
	app.Use(sessionHandler)

	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	// --- Services ---
	refStore := refdata.NewStore(db)
	locationService := &locations.Service{DB: db, RefData: refStore}
	orgService := &org.Service{DB: db, RefData: refStore}
	classificationService := &classification.Service{DB: db, RefData: refStore}
	recipientService := &recipients.Service{DB: db, Locations: locationService}
	assetService := &assets.Service{DB: db, Locations: locationService}
	activityService := &activities.Service{DB: db}
	transferService := &transfers.Service{
		DB:         db,
		RefData:    refStore,
		Recipients: recipientService,
		Locations:  locationService,
		Activities: activityService,
	}

	// --- Open routes ---
	healthHandlers := &health.Handlers{Rdb: rdb, DB: newDBPinger(db), AdminKey: cfg.AdminKey}
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/reset", healthHandlers.Reset)

	refHandlers := &refdata.Handlers{Store: refStore, AdminKey: cfg.AdminKey}
	refGroup := app.Group("/api/v1/reference")
	refGroup.Get("/countries", refHandlers.Countries)
	refGroup.Get("/data-natures", refHandlers.Natures)
	refGroup.Get("/transfer-mechanisms", refHandlers.Mechanisms)
	refGroup.Post("/reload", refHandlers.Reload)

	orgHandlers := &org.Handlers{Service: orgService}
	app.Post("/api/v1/orgs", orgHandlers.CreateOrg)

	// --- Org-scoped routes ---
	orgGroup := app.Group("/api/v1/orgs", middleware.RequireOrg())
	orgGroup.Get("/me", orgHandlers.GetOrg)
	orgGroup.Patch("/me", orgHandlers.UpdateOrg)

	categoryHandlers := &classification.Handlers{Service: classificationService}
	categoryGroup := app.Group("/api/v1/data-categories", middleware.RequireOrg())
	categoryGroup.Post("/", categoryHandlers.CreateCategory)
	categoryGroup.Get("/", categoryHandlers.ListCategories)
	categoryGroup.Get("/:id", categoryHandlers.GetCategory)
	categoryGroup.Patch("/:id", categoryHandlers.UpdateCategory)
	categoryGroup.Delete("/:id", categoryHandlers.DeactivateCategory)
	categoryGroup.Post("/:id/natures/:natureId", categoryHandlers.LinkNature)
	categoryGroup.Delete("/:id/natures/:natureId", categoryHandlers.UnlinkNature)
	categoryGroup.Put("/:id/override", categoryHandlers.SetOverride)
	categoryGroup.Delete("/:id/override", categoryHandlers.ClearOverride)

	recipientHandlers := &recipients.Handlers{Service: recipientService}
	recipientGroup := app.Group("/api/v1/recipients", middleware.RequireOrg())
	recipientGroup.Post("/", recipientHandlers.CreateRecipient)
	recipientGroup.Get("/", recipientHandlers.ListRecipients)
	recipientGroup.Get("/:id", recipientHandlers.GetRecipient)
	recipientGroup.Patch("/:id", recipientHandlers.UpdateRecipient)
	recipientGroup.Delete("/:id", recipientHandlers.DeactivateRecipient)
	recipientGroup.Get("/:id/tree", recipientHandlers.GetTree)
	recipientGroup.Get("/:id/ancestors", recipientHandlers.GetAncestors)

	recipientLocationHandlers := &locations.Handlers{Service: locationService, Kind: locations.OwnerRecipient}
	registerLocationRoutes(recipientGroup, recipientLocationHandlers)

	assetHandlers := &assets.Handlers{Service: assetService}
	assetGroup := app.Group("/api/v1/assets", middleware.RequireOrg())
	assetGroup.Post("/", assetHandlers.CreateAsset)
	assetGroup.Get("/", assetHandlers.ListAssets)
	assetGroup.Get("/:id", assetHandlers.GetAsset)
	assetGroup.Patch("/:id", assetHandlers.UpdateAsset)
	assetGroup.Delete("/:id", assetHandlers.DeactivateAsset)

	assetLocationHandlers := &locations.Handlers{Service: locationService, Kind: locations.OwnerAsset}
	registerLocationRoutes(assetGroup, assetLocationHandlers)

	app.Get("/api/v1/locations/by-country/:countryId", middleware.RequireOrg(), recipientLocationHandlers.ListByCountry)

	activityHandlers := &activities.Handlers{Service: activityService}
	transferHandlers := &transfers.Handlers{Service: transferService}
	activityGroup := app.Group("/api/v1/activities", middleware.RequireOrg())
	activityGroup.Post("/", activityHandlers.CreateActivity)
	activityGroup.Get("/", activityHandlers.ListActivities)
	activityGroup.Get("/:id", activityHandlers.GetActivity)
	activityGroup.Patch("/:id", activityHandlers.UpdateActivity)
	activityGroup.Delete("/:id", activityHandlers.DeactivateActivity)
	activityGroup.Post("/:id/recipients/:recipientId", activityHandlers.LinkRecipient)
	activityGroup.Delete("/:id/recipients/:recipientId", activityHandlers.UnlinkRecipient)
	activityGroup.Post("/:id/assets/:assetId", activityHandlers.LinkAsset)
	activityGroup.Delete("/:id/assets/:assetId", activityHandlers.UnlinkAsset)
	activityGroup.Get("/:id/transfer-analysis", transferHandlers.ActivityAnalysis)

	app.Get("/api/v1/transfers/report", middleware.RequireOrg(), transferHandlers.Report)

	return app, nil
}

func registerLocationRoutes(group fiber.Router, h *locations.Handlers) {
	group.Post("/:id/locations", h.CreateLocation)
	group.Get("/:id/locations", h.ListLocations)
	group.Get("/:id/locations/:locationId", h.GetLocation)
	group.Patch("/:id/locations/:locationId", h.UpdateLocation)
	group.Post("/:id/locations/:locationId/move", h.MoveLocation)
	group.Delete("/:id/locations/:locationId", h.DeactivateLocation)
}

type gormPinger struct {
	db *gorm.DB
}

func (p *gormPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func newDBPinger(db *gorm.DB) health.DBPinger {
	if db == nil {
		return nil
	}
	return &gormPinger{db: db}
}

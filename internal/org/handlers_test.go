package org

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"ropa-backend/internal/database"
	"ropa-backend/internal/middleware"
	"ropa-backend/internal/models"
	"ropa-backend/internal/refdata"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupOrgApp(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, refdata.Seed(context.Background(), db))

	handlers := &Handlers{Service: &Service{DB: db, RefData: refdata.NewStore(db)}}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Post("/api/v1/orgs", handlers.CreateOrg)
	return app, db
}

// orgLocal injects a resolved org id the way the session middleware would.
func orgLocal(app *fiber.App, orgID uuid.UUID, handlers *Handlers) {
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("org_id", orgID)
		return c.Next()
	})
	app.Get("/api/v1/orgs/me", handlers.GetOrg)
	app.Patch("/api/v1/orgs/me", handlers.UpdateOrg)
}

func decodeData(t *testing.T, body io.Reader) map[string]interface{} {
	var envelope struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	assert.Equal(t, "success", envelope.Status)
	return envelope.Data
}

func TestCreateOrg_ReturnsCreated(t *testing.T) {
	app, db := setupOrgApp(t)

	var de models.Country
	require.NoError(t, db.Where("iso_code2 = ?", "DE").First(&de).Error)

	body, _ := json.Marshal(map[string]interface{}{
		"name":                    "Acme GmbH",
		"headquarters_country_id": de.CountryID.String(),
	})
	req := httptest.NewRequest("POST", "/api/v1/orgs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	data := decodeData(t, resp.Body)
	assert.Equal(t, "Acme GmbH", data["name"])
	assert.Equal(t, de.CountryID.String(), data["headquarters_country_id"])
}

func TestCreateOrg_MissingNameRejected(t *testing.T) {
	app, _ := setupOrgApp(t)

	body, _ := json.Marshal(map[string]interface{}{"name": "  "})
	req := httptest.NewRequest("POST", "/api/v1/orgs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrg_UnknownCountryRejected(t *testing.T) {
	app, _ := setupOrgApp(t)

	body, _ := json.Marshal(map[string]interface{}{
		"name":                    "Acme GmbH",
		"headquarters_country_id": uuid.New().String(),
	})
	req := httptest.NewRequest("POST", "/api/v1/orgs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateOrg_NullClearsHeadquarters(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, refdata.Seed(context.Background(), db))

	var de models.Country
	require.NoError(t, db.Where("iso_code2 = ?", "DE").First(&de).Error)
	org := &models.Organization{Name: "Acme GmbH", HeadquartersCountryID: &de.CountryID}
	require.NoError(t, db.Create(org).Error)

	handlers := &Handlers{Service: &Service{DB: db, RefData: refdata.NewStore(db)}}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	orgLocal(app, org.OrgID, handlers)

	body, _ := json.Marshal(map[string]interface{}{"headquarters_country_id": nil})
	req := httptest.NewRequest("PATCH", "/api/v1/orgs/me", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.Organization
	require.NoError(t, db.Where("org_id = ?", org.OrgID).First(&reloaded).Error)
	assert.Nil(t, reloaded.HeadquartersCountryID)
}

func TestGetOrg_Me(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	org := &models.Organization{Name: "Acme GmbH"}
	require.NoError(t, db.Create(org).Error)

	handlers := &Handlers{Service: &Service{DB: db, RefData: refdata.NewStore(db)}}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	orgLocal(app, org.OrgID, handlers)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/orgs/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := decodeData(t, resp.Body)
	assert.Equal(t, org.OrgID.String(), data["org_id"])
}

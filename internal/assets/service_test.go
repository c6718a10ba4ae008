package assets

import (
	"context"
	"testing"

	"ropa-backend/internal/database"
	"ropa-backend/internal/locations"
	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/refdata"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAssetTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, refdata.Seed(context.Background(), db))

	org := &models.Organization{Name: "Acme GmbH"}
	require.NoError(t, db.Create(org).Error)

	locService := &locations.Service{DB: db, RefData: refdata.NewStore(db)}
	return &Service{DB: db, Locations: locService}, db, org.OrgID
}

func assetCountryID(t *testing.T, db *gorm.DB, iso string) uuid.UUID {
	var c models.Country
	require.NoError(t, db.Where("iso_code2 = ?", iso).First(&c).Error)
	return c.CountryID
}

func TestCreateAsset_WithInitialLocations(t *testing.T) {
	s, db, orgID := setupAssetTest(t)

	created, err := s.Create(context.Background(), orgID, CreateAssetInput{
		Name: "CRM",
		Locations: []locations.CreateLocationInput{
			{Service: "EU primary database", CountryID: assetCountryID(t, db, "IE"), LocationRole: models.RoleBoth},
		},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	require.Len(t, created.Locations, 1)
	assert.Equal(t, locations.OwnerAsset, created.Locations[0].Owner.Kind)
}

func TestCreateAsset_InvalidLocationRollsBackAsset(t *testing.T) {
	s, _, orgID := setupAssetTest(t)

	_, err := s.Create(context.Background(), orgID, CreateAssetInput{
		Name: "Broken Tool",
		Locations: []locations.CreateLocationInput{
			{Service: "mystery datacenter", CountryID: uuid.New(), LocationRole: models.RoleHosting},
		},
	})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)

	list, err := s.List(context.Background(), orgID, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateAsset_ClearDescriptionWithNull(t *testing.T) {
	s, _, orgID := setupAssetTest(t)

	desc := "legacy ticketing tool"
	created, err := s.Create(context.Background(), orgID, CreateAssetInput{Name: "Tickets", Description: &desc})
	require.NoError(t, err)

	_, err = s.Update(context.Background(), orgID, created.AssetID, map[string]interface{}{
		"description": nil,
	})
	require.NoError(t, err)

	reloaded, err := s.Get(context.Background(), orgID, created.AssetID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Description)
}

func TestDeactivateAsset_RejectedWhileLinkedToActivity(t *testing.T) {
	s, db, orgID := setupAssetTest(t)

	created, err := s.Create(context.Background(), orgID, CreateAssetInput{Name: "Tracker"})
	require.NoError(t, err)

	activity := &models.ProcessingActivity{OrganizationID: orgID, Name: "Analytics", IsActive: true}
	require.NoError(t, db.Create(activity).Error)
	link := &models.ActivityAsset{ActivityID: activity.ActivityID, AssetID: created.AssetID}
	require.NoError(t, db.Create(link).Error)

	_, err = s.Deactivate(context.Background(), orgID, created.AssetID)
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)

	require.NoError(t, db.Delete(link).Error)
	deactivated, err := s.Deactivate(context.Background(), orgID, created.AssetID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
}

func TestDeactivateAsset_Idempotent(t *testing.T) {
	s, _, orgID := setupAssetTest(t)

	created, err := s.Create(context.Background(), orgID, CreateAssetInput{Name: "Legacy"})
	require.NoError(t, err)

	_, err = s.Deactivate(context.Background(), orgID, created.AssetID)
	require.NoError(t, err)
	again, err := s.Deactivate(context.Background(), orgID, created.AssetID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
}

func TestGetAsset_CrossTenantNotFound(t *testing.T) {
	s, db, orgID := setupAssetTest(t)

	other := &models.Organization{Name: "Rival Ltd"}
	require.NoError(t, db.Create(other).Error)
	theirs, err := s.Create(context.Background(), other.OrgID, CreateAssetInput{Name: "Theirs"})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), orgID, theirs.AssetID)
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

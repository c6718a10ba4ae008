package recipients

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

func setupRecipientTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, refdata.Seed(context.Background(), db))

	org := &models.Organization{Name: "Acme GmbH"}
	require.NoError(t, db.Create(org).Error)

	locService := &locations.Service{DB: db, RefData: refdata.NewStore(db)}
	return &Service{DB: db, Locations: locService}, db, org.OrgID
}

func countryID(t *testing.T, db *gorm.DB, iso string) uuid.UUID {
	var c models.Country
	require.NoError(t, db.Where("iso_code2 = ?", iso).First(&c).Error)
	return c.CountryID
}

func mustCreate(t *testing.T, s *Service, orgID uuid.UUID, name string, parent *uuid.UUID) models.Recipient {
	created, err := s.Create(context.Background(), orgID, CreateRecipientInput{
		Name:              name,
		Type:              models.RecipientProcessor,
		ParentRecipientID: parent,
	})
	require.NoError(t, err)
	return created.Recipient
}

func TestCreate_WithInitialLocations(t *testing.T) {
	s, db, orgID := setupRecipientTest(t)

	created, err := s.Create(context.Background(), orgID, CreateRecipientInput{
		Name: "CloudHost Inc",
		Type: models.RecipientProcessor,
		Locations: []locations.CreateLocationInput{
			{Service: "EU object storage", CountryID: countryID(t, db, "DE"), LocationRole: models.RoleHosting},
		},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	require.Len(t, created.Locations, 1)
	assert.True(t, created.Locations[0].IsActive)
}

func TestCreate_InvalidLocationRollsBackRecipient(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)

	_, err := s.Create(context.Background(), orgID, CreateRecipientInput{
		Name: "Broken Vendor",
		Type: models.RecipientProcessor,
		Locations: []locations.CreateLocationInput{
			{Service: "mystery datacenter", CountryID: uuid.New(), LocationRole: models.RoleHosting},
		},
	})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)

	recs, err := s.List(context.Background(), orgID, false)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCreate_UnknownParentNotFound(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)

	bogus := uuid.New()
	_, err := s.Create(context.Background(), orgID, CreateRecipientInput{
		Name:              "Orphan",
		Type:              models.RecipientSubProcessor,
		ParentRecipientID: &bogus,
	})
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUpdate_SelfParentRejected(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)

	_, err := s.Update(context.Background(), orgID, a.RecipientID, map[string]interface{}{
		"parent_recipient_id": a.RecipientID.String(),
	})
	var cycle *apperrors.CycleError
	require.ErrorAs(t, err, &cycle)
}

func TestUpdate_CycleRejectedParentUnchanged(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)
	b := mustCreate(t, s, orgID, "B", &a.RecipientID)
	c := mustCreate(t, s, orgID, "C", &b.RecipientID)

	// A → B → C already holds; making C the parent of A would close the loop.
	_, err := s.Update(context.Background(), orgID, a.RecipientID, map[string]interface{}{
		"parent_recipient_id": c.RecipientID.String(),
	})
	var cycle *apperrors.CycleError
	require.ErrorAs(t, err, &cycle)

	reloaded, err := s.Get(context.Background(), orgID, a.RecipientID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ParentRecipientID)
}

func TestUpdate_DetachParentWithNull(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)
	b := mustCreate(t, s, orgID, "B", &a.RecipientID)

	updated, err := s.Update(context.Background(), orgID, b.RecipientID, map[string]interface{}{
		"parent_recipient_id": nil,
	})
	require.NoError(t, err)

	reloaded, err := s.Get(context.Background(), orgID, updated.RecipientID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ParentRecipientID)
}

func TestGetDescendantTree_DepthsAndCoverage(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)
	b := mustCreate(t, s, orgID, "B", &a.RecipientID)
	c := mustCreate(t, s, orgID, "C", &a.RecipientID)
	d := mustCreate(t, s, orgID, "D", &b.RecipientID)

	nodes, err := s.GetDescendantTree(context.Background(), orgID, a.RecipientID)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	depths := map[uuid.UUID]int{}
	for _, n := range nodes {
		depths[n.Recipient.RecipientID] = n.Depth
	}
	assert.Equal(t, 0, depths[a.RecipientID])
	assert.Equal(t, 1, depths[b.RecipientID])
	assert.Equal(t, 1, depths[c.RecipientID])
	assert.Equal(t, 2, depths[d.RecipientID])
}

func TestGetAncestorChain_ImmediateParentFirst(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)
	b := mustCreate(t, s, orgID, "B", &a.RecipientID)
	c := mustCreate(t, s, orgID, "C", &b.RecipientID)

	chain, err := s.GetAncestorChain(context.Background(), orgID, c.RecipientID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, b.RecipientID, chain[0].RecipientID)
	assert.Equal(t, a.RecipientID, chain[1].RecipientID)
}

func TestForest_OrphanParentTreatedAsRoot(t *testing.T) {
	s, db, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)

	ghost := uuid.New()
	orphan := &models.Recipient{
		OrganizationID:    orgID,
		Name:              "Imported",
		Type:              models.RecipientProcessor,
		ParentRecipientID: &ghost,
		IsActive:          true,
	}
	require.NoError(t, db.Create(orphan).Error)

	nodes, err := s.Forest(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.Equal(t, 0, n.Depth)
	}
	seen := map[uuid.UUID]bool{}
	for _, n := range nodes {
		seen[n.Recipient.RecipientID] = true
	}
	assert.True(t, seen[a.RecipientID])
	assert.True(t, seen[orphan.RecipientID])
}

func TestDeactivate_RejectedWhileLinkedToActivity(t *testing.T) {
	s, db, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)

	activity := &models.ProcessingActivity{OrganizationID: orgID, Name: "Payroll", IsActive: true}
	require.NoError(t, db.Create(activity).Error)
	link := &models.ActivityRecipient{ActivityID: activity.ActivityID, RecipientID: a.RecipientID}
	require.NoError(t, db.Create(link).Error)

	_, err := s.Deactivate(context.Background(), orgID, a.RecipientID)
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)

	require.NoError(t, db.Delete(link).Error)
	deactivated, err := s.Deactivate(context.Background(), orgID, a.RecipientID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
}

func TestDeactivate_Idempotent(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)

	_, err := s.Deactivate(context.Background(), orgID, a.RecipientID)
	require.NoError(t, err)
	again, err := s.Deactivate(context.Background(), orgID, a.RecipientID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
}

func TestGet_CrossTenantNotFound(t *testing.T) {
	s, db, orgID := setupRecipientTest(t)

	other := &models.Organization{Name: "Rival Ltd"}
	require.NoError(t, db.Create(other).Error)
	theirs := mustCreate(t, s, other.OrgID, "Theirs", nil)

	_, err := s.Get(context.Background(), orgID, theirs.RecipientID)
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestGetDescendantTree_CancelledContext(t *testing.T) {
	s, _, orgID := setupRecipientTest(t)
	a := mustCreate(t, s, orgID, "A", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.GetDescendantTree(ctx, orgID, a.RecipientID)
	require.Error(t, err)
}

package classification

import (
	"context"
	"testing"

	"ropa-backend/internal/database"
	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/refdata"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupClassificationTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, refdata.Seed(context.Background(), db))

	org := &models.Organization{Name: "Acme GmbH"}
	require.NoError(t, db.Create(org).Error)

	service := &Service{DB: db, RefData: refdata.NewStore(db)}
	return service, db, org.OrgID
}

func natureID(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	var n models.DataNature
	require.NoError(t, db.Where("name = ?", name).First(&n).Error)
	return n.NatureID
}

func TestComputeIsSpecialCategory_NoOverride(t *testing.T) {
	nonSpecial := models.DataNature{Classification: models.NatureNonSpecial}
	special := models.DataNature{Classification: models.NatureSpecial}

	got, err := ComputeIsSpecialCategory([]models.DataNature{nonSpecial}, nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = ComputeIsSpecialCategory([]models.DataNature{nonSpecial, special}, nil)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = ComputeIsSpecialCategory(nil, nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestComputeIsSpecialCategory_OverrideWins(t *testing.T) {
	special := models.DataNature{Classification: models.NatureSpecial}
	override := &models.SpecialOverride{Overridden: true, Value: false, Justification: "anonymized before storage"}

	got, err := ComputeIsSpecialCategory([]models.DataNature{special}, override)
	require.NoError(t, err)
	assert.False(t, got)

	override.Value = true
	got, err = ComputeIsSpecialCategory(nil, override)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestComputeIsSpecialCategory_OverrideNeedsJustification(t *testing.T) {
	override := &models.SpecialOverride{Overridden: true, Value: false, Justification: "  "}
	_, err := ComputeIsSpecialCategory(nil, override)
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "justification", ve.Field)
}

func TestCreateCategory_ContactPlusHealthIsSpecial(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{
		Name:      "Employee Records",
		NatureIDs: []uuid.UUID{natureID(t, db, "Contact Information"), natureID(t, db, "Health Data")},
	})
	require.NoError(t, err)
	assert.True(t, created.IsSpecialCategory)
	assert.Len(t, created.Natures, 2)
}

func TestCreateCategory_NoNaturesNotSpecial(t *testing.T) {
	s, _, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{Name: "Unmapped"})
	require.NoError(t, err)
	assert.False(t, created.IsSpecialCategory)
	assert.Empty(t, created.Natures)
}

func TestCreateCategory_UnknownNatureFails(t *testing.T) {
	s, _, orgID := setupClassificationTest(t)

	_, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{
		Name:      "Bad",
		NatureIDs: []uuid.UUID{uuid.New()},
	})
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestLinkNature_RecomputesFlag(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{
		Name:      "CRM Contacts",
		NatureIDs: []uuid.UUID{natureID(t, db, "Contact Information")},
	})
	require.NoError(t, err)
	assert.False(t, created.IsSpecialCategory)

	healthID := natureID(t, db, "Health Data")
	linked, err := s.LinkNature(context.Background(), orgID, created.CategoryID, healthID)
	require.NoError(t, err)
	assert.True(t, linked.IsSpecialCategory)

	unlinked, err := s.UnlinkNature(context.Background(), orgID, created.CategoryID, healthID)
	require.NoError(t, err)
	assert.False(t, unlinked.IsSpecialCategory)
}

func TestLinkNature_DuplicateConflicts(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	contactID := natureID(t, db, "Contact Information")
	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{
		Name:      "CRM Contacts",
		NatureIDs: []uuid.UUID{contactID},
	})
	require.NoError(t, err)

	_, err = s.LinkNature(context.Background(), orgID, created.CategoryID, contactID)
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestUnlinkNature_MissingLinkNotFound(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{Name: "Empty"})
	require.NoError(t, err)

	_, err = s.UnlinkNature(context.Background(), orgID, created.CategoryID, natureID(t, db, "Health Data"))
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSetOverride_ForcesFlagAndClearRestores(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{
		Name:      "Claims Data",
		NatureIDs: []uuid.UUID{natureID(t, db, "Health Data")},
	})
	require.NoError(t, err)
	assert.True(t, created.IsSpecialCategory)

	overridden, err := s.SetOverride(context.Background(), orgID, created.CategoryID, OverrideInput{
		Value:         false,
		Justification: "fully pseudonymized, keys held by third party",
		Actor:         "dpo@acme.example",
	})
	require.NoError(t, err)
	assert.False(t, overridden.IsSpecialCategory)
	require.NotNil(t, overridden.Override())
	assert.Equal(t, "dpo@acme.example", overridden.Override().OverriddenBy)

	cleared, err := s.ClearOverride(context.Background(), orgID, created.CategoryID)
	require.NoError(t, err)
	assert.True(t, cleared.IsSpecialCategory)
	assert.Nil(t, cleared.Override())
}

func TestSetOverride_RequiresJustification(t *testing.T) {
	s, _, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{Name: "Any"})
	require.NoError(t, err)

	_, err = s.SetOverride(context.Background(), orgID, created.CategoryID, OverrideInput{Value: true})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "justification", ve.Field)
}

func TestUpdateCategory_ReplaceNaturesRecomputes(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{
		Name:      "Medical History",
		NatureIDs: []uuid.UUID{natureID(t, db, "Health Data")},
	})
	require.NoError(t, err)
	assert.True(t, created.IsSpecialCategory)

	updated, err := s.UpdateCategory(context.Background(), orgID, created.CategoryID, map[string]interface{}{
		"nature_ids": []interface{}{natureID(t, db, "Contact Information").String()},
	})
	require.NoError(t, err)
	assert.False(t, updated.IsSpecialCategory)
	require.Len(t, updated.Natures, 1)
	assert.Equal(t, "Contact Information", updated.Natures[0].Name)
}

func TestGetCategory_CrossTenantIndistinguishable(t *testing.T) {
	s, db, orgID := setupClassificationTest(t)

	otherOrg := &models.Organization{Name: "Rival Ltd"}
	require.NoError(t, db.Create(otherOrg).Error)
	created, err := s.CreateCategory(context.Background(), otherOrg.OrgID, CreateCategoryInput{Name: "Theirs"})
	require.NoError(t, err)

	_, errForeign := s.GetCategory(context.Background(), orgID, created.CategoryID)
	_, errAbsent := s.GetCategory(context.Background(), orgID, uuid.New())
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, errForeign, &nf)
	require.ErrorAs(t, errAbsent, &nf)
	assert.Equal(t, errForeign.Error(), errAbsent.Error())
}

func TestDeactivateCategory_Idempotent(t *testing.T) {
	s, _, orgID := setupClassificationTest(t)

	created, err := s.CreateCategory(context.Background(), orgID, CreateCategoryInput{Name: "Legacy"})
	require.NoError(t, err)

	first, err := s.DeactivateCategory(context.Background(), orgID, created.CategoryID)
	require.NoError(t, err)
	assert.False(t, first.IsActive)

	second, err := s.DeactivateCategory(context.Background(), orgID, created.CategoryID)
	require.NoError(t, err)
	assert.False(t, second.IsActive)
}

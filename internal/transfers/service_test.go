package transfers

import (
	"context"
	"testing"

	"ropa-backend/internal/activities"
	"ropa-backend/internal/database"
	"ropa-backend/internal/locations"
	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/recipients"
	"ropa-backend/internal/refdata"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type transferFixture struct {
	service    *Service
	db         *gorm.DB
	orgID      uuid.UUID
	recipients *recipients.Service
	locations  *locations.Service
	activities *activities.Service
}

// setupTransferTest builds an org headquartered in Germany over the seeded
// reference set.
func setupTransferTest(t *testing.T) transferFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, refdata.Seed(context.Background(), db))

	var de models.Country
	require.NoError(t, db.Where("iso_code2 = ?", "DE").First(&de).Error)
	org := &models.Organization{Name: "Acme GmbH", HeadquartersCountryID: &de.CountryID}
	require.NoError(t, db.Create(org).Error)

	store := refdata.NewStore(db)
	locService := &locations.Service{DB: db, RefData: store}
	recService := &recipients.Service{DB: db, Locations: locService}
	actService := &activities.Service{DB: db}
	return transferFixture{
		service: &Service{
			DB:         db,
			RefData:    store,
			Recipients: recService,
			Locations:  locService,
			Activities: actService,
		},
		db:         db,
		orgID:      org.OrgID,
		recipients: recService,
		locations:  locService,
		activities: actService,
	}
}

func (f transferFixture) country(t *testing.T, iso string) models.Country {
	var c models.Country
	require.NoError(t, f.db.Where("iso_code2 = ?", iso).First(&c).Error)
	return c
}

func (f transferFixture) mechanism(t *testing.T, name string) models.TransferMechanism {
	var m models.TransferMechanism
	require.NoError(t, f.db.Where("name = ?", name).First(&m).Error)
	return m
}

func (f transferFixture) addRecipient(t *testing.T, name string, parent *uuid.UUID) models.Recipient {
	created, err := f.recipients.Create(context.Background(), f.orgID, recipients.CreateRecipientInput{
		Name: name, Type: models.RecipientProcessor, ParentRecipientID: parent,
	})
	require.NoError(t, err)
	return created.Recipient
}

func (f transferFixture) addLocation(t *testing.T, owner locations.Owner, iso string, mechanismID *uuid.UUID) locations.Location {
	loc, err := f.locations.Create(context.Background(), f.orgID, owner, locations.CreateLocationInput{
		Service:             iso + " processing site",
		CountryID:           f.country(t, iso).CountryID,
		LocationRole:        models.RoleProcessing,
		TransferMechanismID: mechanismID,
	})
	require.NoError(t, err)
	return *loc
}

func recipientOwner(r models.Recipient) locations.Owner {
	return locations.Owner{Kind: locations.OwnerRecipient, ID: r.RecipientID}
}

func view(t *testing.T, f transferFixture, iso string) refdata.CountryView {
	v, err := f.service.RefData.CountryByID(context.Background(), f.country(t, iso).CountryID)
	require.NoError(t, err)
	return v
}

func TestIsSameJurisdiction(t *testing.T) {
	f := setupTransferTest(t)
	de, fr, no, ch, gb, us := view(t, f, "DE"), view(t, f, "FR"), view(t, f, "NO"), view(t, f, "CH"), view(t, f, "GB"), view(t, f, "US")

	assert.True(t, IsSameJurisdiction(de, de))
	assert.True(t, IsSameJurisdiction(de, fr)) // shared EU
	assert.True(t, IsSameJurisdiction(de, no)) // shared EEA
	assert.True(t, IsSameJurisdiction(no, ch)) // shared EFTA
	assert.False(t, IsSameJurisdiction(de, ch))
	assert.False(t, IsSameJurisdiction(de, gb)) // adequacy is not shared jurisdiction
	assert.False(t, IsSameJurisdiction(de, us))
}

func TestRiskFor_Tiers(t *testing.T) {
	f := setupTransferTest(t)
	de, fr, gb, us := view(t, f, "DE"), view(t, f, "FR"), view(t, f, "GB"), view(t, f, "US")
	scc := f.mechanism(t, "Standard Contractual Clauses")
	none := f.mechanism(t, "No Mechanism (Under Review)")

	assert.Equal(t, RiskNone, RiskFor(de, fr, nil, false))
	assert.Equal(t, RiskLow, RiskFor(de, gb, nil, false))
	assert.Equal(t, RiskMedium, RiskFor(de, us, &scc, false))
	assert.Equal(t, RiskHigh, RiskFor(de, us, nil, true))
	assert.Equal(t, RiskCritical, RiskFor(de, us, nil, false))
	// A category-NONE mechanism records a reviewed gap, it is not protection.
	assert.Equal(t, RiskCritical, RiskFor(de, us, &none, false))
	assert.Equal(t, RiskHigh, RiskFor(de, us, &none, true))
}

func TestDetect_MissingHeadquartersFailsFast(t *testing.T) {
	f := setupTransferTest(t)
	require.NoError(t, f.db.Model(&models.Organization{}).
		Where("org_id = ?", f.orgID).
		Update("headquarters_country_id", nil).Error)

	_, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	var cfg *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfg)
}

func TestDetect_SameJurisdictionProducesNoTransfers(t *testing.T) {
	f := setupTransferTest(t)
	rec := f.addRecipient(t, "FR Vendor", nil)
	f.addLocation(t, recipientOwner(rec), "FR", nil)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	assert.Empty(t, report.Transfers)
	assert.Equal(t, 0, report.Summary.TotalTransfers)
	assert.Equal(t, "DE", report.HeadquartersCountry.IsoCode2)
}

func TestDetect_UnprotectedThirdCountryIsCritical(t *testing.T) {
	f := setupTransferTest(t)
	rec := f.addRecipient(t, "US Vendor", nil)
	f.addLocation(t, recipientOwner(rec), "US", nil)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, report.Transfers, 1)
	tr := report.Transfers[0]
	assert.Equal(t, RiskCritical, tr.TransferRisk)
	assert.True(t, tr.RequiresSafeguards)
	assert.Equal(t, "US", tr.DestinationCountry.IsoCode2)
	assert.Equal(t, 0, tr.Depth)
	assert.Equal(t, 1, report.Summary.RiskDistribution[RiskCritical])
}

func TestDetect_MechanismOnLocationIsMedium(t *testing.T) {
	f := setupTransferTest(t)
	scc := f.mechanism(t, "Standard Contractual Clauses")
	rec := f.addRecipient(t, "US Vendor", nil)
	f.addLocation(t, recipientOwner(rec), "US", &scc.MechanismID)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, report.Transfers, 1)
	assert.Equal(t, RiskMedium, report.Transfers[0].TransferRisk)
}

func TestDetect_AdequateDestinationIsLow(t *testing.T) {
	f := setupTransferTest(t)
	rec := f.addRecipient(t, "UK Vendor", nil)
	f.addLocation(t, recipientOwner(rec), "GB", nil)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, report.Transfers, 1)
	tr := report.Transfers[0]
	assert.Equal(t, RiskLow, tr.TransferRisk)
	assert.False(t, tr.RequiresSafeguards)
}

func TestDetect_ChainMitigationDowngradesToHigh(t *testing.T) {
	f := setupTransferTest(t)
	scc := f.mechanism(t, "Standard Contractual Clauses")

	parent := f.addRecipient(t, "US Parent", nil)
	f.addLocation(t, recipientOwner(parent), "US", &scc.MechanismID)
	child := f.addRecipient(t, "US Subsidiary", &parent.RecipientID)
	f.addLocation(t, recipientOwner(child), "US", nil)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, report.Transfers, 2)

	byRecipient := map[uuid.UUID]Transfer{}
	for _, tr := range report.Transfers {
		require.NotNil(t, tr.RecipientID)
		byRecipient[*tr.RecipientID] = tr
	}
	assert.Equal(t, RiskMedium, byRecipient[parent.RecipientID].TransferRisk)
	assert.Equal(t, 0, byRecipient[parent.RecipientID].Depth)
	assert.Equal(t, RiskHigh, byRecipient[child.RecipientID].TransferRisk)
	assert.Equal(t, 1, byRecipient[child.RecipientID].Depth)
}

func TestDetect_ChainMitigationNeedsSameDestination(t *testing.T) {
	f := setupTransferTest(t)
	scc := f.mechanism(t, "Standard Contractual Clauses")

	parent := f.addRecipient(t, "Global Parent", nil)
	f.addLocation(t, recipientOwner(parent), "IN", &scc.MechanismID)
	child := f.addRecipient(t, "US Subsidiary", &parent.RecipientID)
	f.addLocation(t, recipientOwner(child), "US", nil)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	for _, tr := range report.Transfers {
		if tr.RecipientID != nil && *tr.RecipientID == child.RecipientID {
			assert.Equal(t, RiskCritical, tr.TransferRisk)
		}
	}
}

func TestDetect_SkipsInactiveRecipients(t *testing.T) {
	f := setupTransferTest(t)
	rec := f.addRecipient(t, "US Vendor", nil)
	f.addLocation(t, recipientOwner(rec), "US", nil)
	_, err := f.recipients.Deactivate(context.Background(), f.orgID, rec.RecipientID)
	require.NoError(t, err)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	assert.Empty(t, report.Transfers)
}

func TestSummary_CountriesSortedByCount(t *testing.T) {
	f := setupTransferTest(t)
	rec := f.addRecipient(t, "Multi Vendor", nil)
	f.addLocation(t, recipientOwner(rec), "US", nil)
	f.addLocation(t, recipientOwner(rec), "US", nil)
	f.addLocation(t, recipientOwner(rec), "IN", nil)

	report, err := f.service.DetectCrossBorderTransfers(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, report.Summary.CountriesInvolved, 2)
	assert.Equal(t, "US", report.Summary.CountriesInvolved[0].IsoCode2)
	assert.Equal(t, 2, report.Summary.CountriesInvolved[0].Locations)
	assert.Equal(t, "IN", report.Summary.CountriesInvolved[1].IsoCode2)
	assert.Equal(t, 3, report.Summary.TotalTransfers)
}

func TestActivityAnalysis_EmptyActivityIsValid(t *testing.T) {
	f := setupTransferTest(t)
	act, err := f.activities.Create(context.Background(), f.orgID, activities.CreateActivityInput{Name: "Payroll"})
	require.NoError(t, err)

	analysis, err := f.service.GetActivityTransferAnalysis(context.Background(), f.orgID, act.ActivityID)
	require.NoError(t, err)
	assert.Empty(t, analysis.RecipientTransfers)
	assert.Empty(t, analysis.AssetTransfers)
	assert.Equal(t, 0, analysis.Summary.TotalTransfers)
	assert.Len(t, analysis.Summary.RiskDistribution, 5)
}

func TestActivityAnalysis_ExpandsRecipientSubtree(t *testing.T) {
	f := setupTransferTest(t)
	act, err := f.activities.Create(context.Background(), f.orgID, activities.CreateActivityInput{Name: "Analytics"})
	require.NoError(t, err)

	parent := f.addRecipient(t, "EU Processor", nil)
	child := f.addRecipient(t, "US Sub-processor", &parent.RecipientID)
	f.addLocation(t, recipientOwner(child), "US", nil)
	require.NoError(t, f.activities.LinkRecipient(context.Background(), f.orgID, act.ActivityID, parent.RecipientID))

	asset := &models.DigitalAsset{OrganizationID: f.orgID, Name: "Tracker", IsActive: true}
	require.NoError(t, f.db.Create(asset).Error)
	f.addLocation(t, locations.Owner{Kind: locations.OwnerAsset, ID: asset.AssetID}, "IN", nil)
	require.NoError(t, f.activities.LinkAsset(context.Background(), f.orgID, act.ActivityID, asset.AssetID))

	analysis, err := f.service.GetActivityTransferAnalysis(context.Background(), f.orgID, act.ActivityID)
	require.NoError(t, err)
	require.Len(t, analysis.RecipientTransfers, 1)
	assert.Equal(t, child.RecipientID, *analysis.RecipientTransfers[0].RecipientID)
	require.Len(t, analysis.AssetTransfers, 1)
	assert.Equal(t, asset.AssetID, *analysis.AssetTransfers[0].AssetID)
	assert.Equal(t, 2, analysis.Summary.TotalTransfers)
}

func TestActivityAnalysis_UnknownActivityNotFound(t *testing.T) {
	f := setupTransferTest(t)
	_, err := f.service.GetActivityTransferAnalysis(context.Background(), f.orgID, uuid.New())
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

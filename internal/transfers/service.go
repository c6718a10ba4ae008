// Package transfers is the cross-border transfer detection engine. It
// composes the organization's home jurisdiction, the recipient hierarchy and
// every active processing location into a risk-annotated report. Every call is
// a pure read-then-compute over the current active-location snapshot.
package transfers

import (
	"context"
	"sort"

	"ropa-backend/internal/activities"
	"ropa-backend/internal/locations"
	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/recipients"
	"ropa-backend/internal/refdata"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RiskTier grades a detected transfer.
type RiskTier string

const (
	RiskNone     RiskTier = "NONE"
	RiskLow      RiskTier = "LOW"
	RiskMedium   RiskTier = "MEDIUM"
	RiskHigh     RiskTier = "HIGH"
	RiskCritical RiskTier = "CRITICAL"
)

// CountryRef is the minimal country shape embedded in reports.
type CountryRef struct {
	CountryID uuid.UUID `json:"country_id"`
	Name      string    `json:"name"`
	IsoCode2  string    `json:"iso_code2"`
}

func countryRef(v refdata.CountryView) CountryRef {
	return CountryRef{CountryID: v.ID, Name: v.Name, IsoCode2: v.ISO2}
}

// Transfer is one detected cross-border flow: a single active location whose
// country is outside the organization's home jurisdiction.
type Transfer struct {
	OrganizationCountry CountryRef `json:"organization_country"`
	RecipientID         *uuid.UUID `json:"recipient_id,omitempty"`
	RecipientName       string     `json:"recipient_name,omitempty"`
	AssetID             *uuid.UUID `json:"asset_id,omitempty"`
	AssetName           string     `json:"asset_name,omitempty"`
	LocationID          uuid.UUID  `json:"location_id"`
	Service             string     `json:"service"`
	DestinationCountry  CountryRef `json:"destination_country"`
	Depth               int        `json:"depth"`
	TransferRisk        RiskTier   `json:"transfer_risk"`
	TransferMechanismID *uuid.UUID `json:"transfer_mechanism_id"`
	RequiresSafeguards  bool       `json:"requires_safeguards"`
}

// CountryCount is one destination country with its location tally.
type CountryCount struct {
	CountryRef
	Locations int `json:"locations"`
}

// Summary aggregates a transfer list.
type Summary struct {
	TotalTransfers    int              `json:"total_transfers"`
	RiskDistribution  map[RiskTier]int `json:"risk_distribution"`
	CountriesInvolved []CountryCount   `json:"countries_involved"`
}

// Report is the organization-wide detection result.
type Report struct {
	OrganizationID      uuid.UUID  `json:"org_id"`
	HeadquartersCountry CountryRef `json:"headquarters_country"`
	Transfers           []Transfer `json:"transfers"`
	Summary             Summary    `json:"summary"`
}

// ActivityTransferAnalysis is the per-activity result: recipient-side and
// asset-side findings reported separately plus a merged summary.
type ActivityTransferAnalysis struct {
	ActivityID          uuid.UUID  `json:"activity_id"`
	HeadquartersCountry CountryRef `json:"headquarters_country"`
	RecipientTransfers  []Transfer `json:"recipient_transfers"`
	AssetTransfers      []Transfer `json:"asset_transfers"`
	Summary             Summary    `json:"summary"`
}

// Service composes the detection inputs.
type Service struct {
	DB         *gorm.DB
	RefData    *refdata.Store
	Recipients *recipients.Service
	Locations  *locations.Service
	Activities *activities.Service
}

// IsSameJurisdiction is true when the two countries share a legal framework:
// same country, or an overlapping EU/EEA/EFTA tag. ADEQUATE is deliberately
// not a shared framework — adequacy permits transfers, it does not make the
// jurisdictions one.
func IsSameJurisdiction(a, b refdata.CountryView) bool {
	if a.ID == b.ID {
		return true
	}
	for _, tag := range []models.JurisdictionTag{models.TagEU, models.TagEEA, models.TagEFTA} {
		if a.HasTag(tag) && b.HasTag(tag) {
			return true
		}
	}
	return false
}

// IsThirdCountry is true for THIRD_COUNTRY destinations without an adequacy
// decision.
func IsThirdCountry(c refdata.CountryView) bool {
	return c.HasTag(models.TagThirdCountry) && !c.HasTag(models.TagAdequate)
}

// RequiresSafeguards is true when the flow leaves the home jurisdiction for a
// non-adequate third country.
func RequiresSafeguards(origin, destination refdata.CountryView) bool {
	return !IsSameJurisdiction(origin, destination) && IsThirdCountry(destination)
}

// RiskFor grades a single location. chainMitigated applies only when the
// location itself has no mitigating mechanism: another active location on the
// same owner chain covers the destination with one.
func RiskFor(origin, destination refdata.CountryView, mechanism *models.TransferMechanism, chainMitigated bool) RiskTier {
	if IsSameJurisdiction(origin, destination) {
		return RiskNone
	}
	if !IsThirdCountry(destination) {
		return RiskLow
	}
	if mechanism != nil && mechanism.Mitigates() {
		return RiskMedium
	}
	if chainMitigated {
		return RiskHigh
	}
	return RiskCritical
}

// DetectCrossBorderTransfers walks every active recipient in the org (with
// hierarchy depth) and grades each active location against the organization's
// headquarters country. An org without a headquarters country fails fast with
// ConfigurationError: an analysis without a home jurisdiction would only
// produce false negatives.
func (s *Service) DetectCrossBorderTransfers(ctx context.Context, orgID uuid.UUID) (*Report, error) {
	origin, err := s.homeJurisdiction(ctx, orgID)
	if err != nil {
		return nil, err
	}

	forest, err := s.Recipients.Forest(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Recipient, len(forest))
	for _, node := range forest {
		byID[node.Recipient.RecipientID] = node.Recipient
	}

	transfersList := []Transfer{}
	for _, node := range forest {
		if ctx.Err() != nil {
			return nil, &apperrors.CancelledError{Operation: "transfer detection"}
		}
		if !node.Recipient.IsActive {
			continue
		}
		found, err := s.recipientTransfers(ctx, orgID, origin, node, byID)
		if err != nil {
			return nil, err
		}
		transfersList = append(transfersList, found...)
	}

	return &Report{
		OrganizationID:      orgID,
		HeadquartersCountry: countryRef(origin),
		Transfers:           transfersList,
		Summary:             summarize(transfersList),
	}, nil
}

// GetActivityTransferAnalysis runs the same per-location detection over the
// activity's linked recipients (expanded through their descendant trees) and
// linked assets, reported separately. An activity with no links returns empty
// lists and zero counters — that is a valid answer, not an error.
func (s *Service) GetActivityTransferAnalysis(ctx context.Context, orgID, activityID uuid.UUID) (*ActivityTransferAnalysis, error) {
	origin, err := s.homeJurisdiction(ctx, orgID)
	if err != nil {
		return nil, err
	}

	linkedRecipients, err := s.Activities.LinkedRecipients(ctx, orgID, activityID)
	if err != nil {
		return nil, err
	}
	linkedAssets, err := s.Activities.LinkedAssets(ctx, orgID, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyActivity(ctx, orgID, activityID); err != nil {
		return nil, err
	}

	// Recipient side: expand each linked recipient through its subtree, each
	// recipient counted once even when reachable from two links.
	allRecipients, err := s.Recipients.List(ctx, orgID, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Recipient, len(allRecipients))
	for _, r := range allRecipients {
		byID[r.RecipientID] = r
	}

	recipientTransfers := []Transfer{}
	seen := map[uuid.UUID]bool{}
	for _, linked := range linkedRecipients {
		tree, err := s.Recipients.GetDescendantTree(ctx, orgID, linked.RecipientID)
		if err != nil {
			return nil, err
		}
		for _, node := range tree {
			if ctx.Err() != nil {
				return nil, &apperrors.CancelledError{Operation: "activity transfer analysis"}
			}
			if seen[node.Recipient.RecipientID] || !node.Recipient.IsActive {
				continue
			}
			seen[node.Recipient.RecipientID] = true
			found, err := s.recipientTransfers(ctx, orgID, origin, node, byID)
			if err != nil {
				return nil, err
			}
			recipientTransfers = append(recipientTransfers, found...)
		}
	}

	assetTransfers := []Transfer{}
	for _, asset := range linkedAssets {
		if ctx.Err() != nil {
			return nil, &apperrors.CancelledError{Operation: "activity transfer analysis"}
		}
		if !asset.IsActive {
			continue
		}
		found, err := s.assetTransfers(ctx, orgID, origin, asset)
		if err != nil {
			return nil, err
		}
		assetTransfers = append(assetTransfers, found...)
	}

	merged := append(append([]Transfer{}, recipientTransfers...), assetTransfers...)
	return &ActivityTransferAnalysis{
		ActivityID:          activityID,
		HeadquartersCountry: countryRef(origin),
		RecipientTransfers:  recipientTransfers,
		AssetTransfers:      assetTransfers,
		Summary:             summarize(merged),
	}, nil
}

// homeJurisdiction loads the org and resolves its headquarters country.
func (s *Service) homeJurisdiction(ctx context.Context, orgID uuid.UUID) (refdata.CountryView, error) {
	var org models.Organization
	if err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&org).Error; err != nil {
		return refdata.CountryView{}, apperrors.Translate(err, "organization")
	}
	if org.HeadquartersCountryID == nil {
		return refdata.CountryView{}, &apperrors.ConfigurationError{
			Message: "set your organization's headquarters country before running transfer analysis",
		}
	}
	origin, err := s.RefData.CountryByID(ctx, *org.HeadquartersCountryID)
	if err != nil {
		return refdata.CountryView{}, &apperrors.ConfigurationError{
			Message: "organization headquarters country is not in the country register",
		}
	}
	return origin, nil
}

func (s *Service) verifyActivity(ctx context.Context, orgID, activityID uuid.UUID) error {
	var act models.ProcessingActivity
	return apperrors.Translate(
		s.DB.WithContext(ctx).
			Where("activity_id = ? AND org_id = ?", activityID, orgID).
			First(&act).Error,
		"processing activity")
}

// recipientTransfers grades every active location of one recipient node.
func (s *Service) recipientTransfers(ctx context.Context, orgID uuid.UUID, origin refdata.CountryView, node recipients.RecipientNode, byID map[uuid.UUID]models.Recipient) ([]Transfer, error) {
	rec := node.Recipient
	locs, err := s.Locations.ListActiveForOwner(ctx, orgID,
		locations.Owner{Kind: locations.OwnerRecipient, ID: rec.RecipientID})
	if err != nil {
		return nil, err
	}

	var out []Transfer
	for _, loc := range locs {
		dest, err := s.RefData.CountryByID(ctx, loc.CountryID)
		if err != nil {
			return nil, err
		}
		if IsSameJurisdiction(origin, dest) {
			continue
		}
		mech, err := s.mechanismFor(ctx, loc.TransferMechanismID)
		if err != nil {
			return nil, err
		}
		chainMitigated := false
		if mech == nil || !mech.Mitigates() {
			chainMitigated, err = s.chainCoversDestination(ctx, orgID, rec, loc.LocationID, dest.ID, byID)
			if err != nil {
				return nil, err
			}
		}
		recID := rec.RecipientID
		out = append(out, Transfer{
			OrganizationCountry: countryRef(origin),
			RecipientID:         &recID,
			RecipientName:       rec.Name,
			LocationID:          loc.LocationID,
			Service:             loc.Service,
			DestinationCountry:  countryRef(dest),
			Depth:               node.Depth,
			TransferRisk:        RiskFor(origin, dest, mech, chainMitigated),
			TransferMechanismID: loc.TransferMechanismID,
			RequiresSafeguards:  RequiresSafeguards(origin, dest),
		})
	}
	return out, nil
}

// assetTransfers grades every active location of one digital asset. Assets
// have no hierarchy, so depth is 0 and chain mitigation means a sibling
// location of the same asset.
func (s *Service) assetTransfers(ctx context.Context, orgID uuid.UUID, origin refdata.CountryView, asset models.DigitalAsset) ([]Transfer, error) {
	locs, err := s.Locations.ListActiveForOwner(ctx, orgID,
		locations.Owner{Kind: locations.OwnerAsset, ID: asset.AssetID})
	if err != nil {
		return nil, err
	}

	var out []Transfer
	for _, loc := range locs {
		dest, err := s.RefData.CountryByID(ctx, loc.CountryID)
		if err != nil {
			return nil, err
		}
		if IsSameJurisdiction(origin, dest) {
			continue
		}
		mech, err := s.mechanismFor(ctx, loc.TransferMechanismID)
		if err != nil {
			return nil, err
		}
		chainMitigated := false
		if mech == nil || !mech.Mitigates() {
			chainMitigated, err = s.anyMitigating(ctx, locs, loc.LocationID, dest.ID)
			if err != nil {
				return nil, err
			}
		}
		assetID := asset.AssetID
		out = append(out, Transfer{
			OrganizationCountry: countryRef(origin),
			AssetID:             &assetID,
			AssetName:           asset.Name,
			LocationID:          loc.LocationID,
			Service:             loc.Service,
			DestinationCountry:  countryRef(dest),
			Depth:               0,
			TransferRisk:        RiskFor(origin, dest, mech, chainMitigated),
			TransferMechanismID: loc.TransferMechanismID,
			RequiresSafeguards:  RequiresSafeguards(origin, dest),
		})
	}
	return out, nil
}

func (s *Service) mechanismFor(ctx context.Context, id *uuid.UUID) (*models.TransferMechanism, error) {
	if id == nil {
		return nil, nil
	}
	mech, err := s.RefData.MechanismByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	return &mech, nil
}

// chainCoversDestination checks whether any other active location on the
// recipient itself or one of its ancestors carries a mitigating mechanism for
// the same destination country (the partial mitigation behind the HIGH tier).
func (s *Service) chainCoversDestination(ctx context.Context, orgID uuid.UUID, rec models.Recipient, excludeLocationID, destCountryID uuid.UUID, byID map[uuid.UUID]models.Recipient) (bool, error) {
	visited := map[uuid.UUID]bool{}
	current := &rec
	for current != nil {
		if visited[current.RecipientID] {
			break
		}
		visited[current.RecipientID] = true

		locs, err := s.Locations.ListActiveForOwner(ctx, orgID,
			locations.Owner{Kind: locations.OwnerRecipient, ID: current.RecipientID})
		if err != nil {
			return false, err
		}
		covered, err := s.anyMitigating(ctx, locs, excludeLocationID, destCountryID)
		if err != nil || covered {
			return covered, err
		}

		if current.ParentRecipientID == nil {
			break
		}
		parent, ok := byID[*current.ParentRecipientID]
		if !ok {
			break
		}
		current = &parent
	}
	return false, nil
}

func (s *Service) anyMitigating(ctx context.Context, locs []locations.Location, excludeLocationID, destCountryID uuid.UUID) (bool, error) {
	for _, l := range locs {
		if l.LocationID == excludeLocationID || l.CountryID != destCountryID || l.TransferMechanismID == nil {
			continue
		}
		mech, err := s.RefData.MechanismByID(ctx, *l.TransferMechanismID)
		if err != nil {
			return false, err
		}
		if mech.Mitigates() {
			return true, nil
		}
	}
	return false, nil
}

// summarize builds the merged counters: total, per-tier distribution, and the
// deduplicated destination-country tally, sorted by count then name.
func summarize(list []Transfer) Summary {
	dist := map[RiskTier]int{
		RiskNone: 0, RiskLow: 0, RiskMedium: 0, RiskHigh: 0, RiskCritical: 0,
	}
	byCountry := map[uuid.UUID]*CountryCount{}
	for _, t := range list {
		dist[t.TransferRisk]++
		cc, ok := byCountry[t.DestinationCountry.CountryID]
		if !ok {
			cc = &CountryCount{CountryRef: t.DestinationCountry}
			byCountry[t.DestinationCountry.CountryID] = cc
		}
		cc.Locations++
	}
	countries := make([]CountryCount, 0, len(byCountry))
	for _, cc := range byCountry {
		countries = append(countries, *cc)
	}
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].Locations != countries[j].Locations {
			return countries[i].Locations > countries[j].Locations
		}
		return countries[i].Name < countries[j].Name
	})
	return Summary{
		TotalTransfers:    len(list),
		RiskDistribution:  dist,
		CountriesInvolved: countries,
	}
}

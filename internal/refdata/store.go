// Package refdata holds the global lookup tables (countries, data natures,
// transfer mechanisms). They are read-only from this service and change only
// through external admin seeding, so the whole set is cached per process and
// refreshed on explicit reload.
package refdata

import (
	"context"
	"sort"
	"sync"

	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CountryView is a Country with its jsonb tag set decoded once, so the
// classification and transfer engines never re-parse tags per decision.
type CountryView struct {
	ID   uuid.UUID
	Name string
	ISO2 string
	Tags map[models.JurisdictionTag]bool
}

// HasTag reports tag membership.
func (v CountryView) HasTag(tag models.JurisdictionTag) bool {
	return v.Tags[tag]
}

// Store caches the three reference tables behind an RWMutex. Loading is lazy;
// Reload refreshes everything in one shot.
type Store struct {
	DB *gorm.DB

	mu         sync.RWMutex
	loaded     bool
	countries  map[uuid.UUID]CountryView
	natures    map[uuid.UUID]models.DataNature
	mechanisms map[uuid.UUID]models.TransferMechanism
}

// NewStore wraps db; nothing is loaded until first use.
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Reload re-reads all three tables, replacing the cache atomically.
func (s *Store) Reload(ctx context.Context) error {
	var countries []models.Country
	if err := s.DB.WithContext(ctx).Find(&countries).Error; err != nil {
		return err
	}
	var natures []models.DataNature
	if err := s.DB.WithContext(ctx).Find(&natures).Error; err != nil {
		return err
	}
	var mechanisms []models.TransferMechanism
	if err := s.DB.WithContext(ctx).Find(&mechanisms).Error; err != nil {
		return err
	}

	cm := make(map[uuid.UUID]CountryView, len(countries))
	for i := range countries {
		c := &countries[i]
		tags := make(map[models.JurisdictionTag]bool)
		for _, t := range c.Tags() {
			tags[t] = true
		}
		cm[c.CountryID] = CountryView{ID: c.CountryID, Name: c.Name, ISO2: c.IsoCode2, Tags: tags}
	}
	nm := make(map[uuid.UUID]models.DataNature, len(natures))
	for _, n := range natures {
		nm[n.NatureID] = n
	}
	mm := make(map[uuid.UUID]models.TransferMechanism, len(mechanisms))
	for _, m := range mechanisms {
		mm[m.MechanismID] = m
	}

	s.mu.Lock()
	s.countries = cm
	s.natures = nm
	s.mechanisms = mm
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Store) ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Reload(ctx)
}

// CountryByID returns the decoded country or NotFound.
func (s *Store) CountryByID(ctx context.Context, id uuid.UUID) (CountryView, error) {
	if err := s.ensure(ctx); err != nil {
		return CountryView{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.countries[id]
	if !ok {
		return CountryView{}, apperrors.NotFound("country")
	}
	return v, nil
}

// Countries returns all countries sorted by name.
func (s *Store) Countries(ctx context.Context) ([]CountryView, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]CountryView, 0, len(s.countries))
	for _, v := range s.countries {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// NatureByID returns one data nature or NotFound.
func (s *Store) NatureByID(ctx context.Context, id uuid.UUID) (models.DataNature, error) {
	if err := s.ensure(ctx); err != nil {
		return models.DataNature{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.natures[id]
	if !ok {
		return models.DataNature{}, apperrors.NotFound("data nature")
	}
	return n, nil
}

// NaturesByIDs resolves a set of nature ids; any missing id fails the call.
func (s *Store) NaturesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.DataNature, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DataNature, 0, len(ids))
	for _, id := range ids {
		n, ok := s.natures[id]
		if !ok {
			return nil, apperrors.NotFound("data nature")
		}
		out = append(out, n)
	}
	return out, nil
}

// Natures returns all data natures sorted by name.
func (s *Store) Natures(ctx context.Context) ([]models.DataNature, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.DataNature, 0, len(s.natures))
	for _, n := range s.natures {
		out = append(out, n)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MechanismByID returns one transfer mechanism or NotFound.
func (s *Store) MechanismByID(ctx context.Context, id uuid.UUID) (models.TransferMechanism, error) {
	if err := s.ensure(ctx); err != nil {
		return models.TransferMechanism{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mechanisms[id]
	if !ok {
		return models.TransferMechanism{}, apperrors.NotFound("transfer mechanism")
	}
	return m, nil
}

// Mechanisms returns the full mechanism catalog sorted by name.
func (s *Store) Mechanisms(ctx context.Context) ([]models.TransferMechanism, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.TransferMechanism, 0, len(s.mechanisms))
	for _, m := range s.mechanisms {
		out = append(out, m)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

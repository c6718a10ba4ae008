// Package recipients owns the recipient records and their parent/sub-processor
// hierarchy. The hierarchy is a forest: cycles are rejected at the mutation
// boundary with an ancestor walk, so traversal code can assume a tree.
package recipients

import (
	"context"
	"sort"

	"ropa-backend/internal/locations"
	"ropa-backend/internal/models"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service encapsulates recipient operations.
type Service struct {
	DB        *gorm.DB
	Locations *locations.Service
}

// CreateRecipientInput carries the fields for a new recipient, optionally with
// initial processing locations created in the same transaction.
type CreateRecipientInput struct {
	Name              string                          `json:"name"`
	Type              models.RecipientType            `json:"type"`
	ParentRecipientID *uuid.UUID                      `json:"parent_recipient_id"`
	Locations         []locations.CreateLocationInput `json:"locations"`
}

// RecipientDetail is a recipient plus its active locations.
type RecipientDetail struct {
	models.Recipient
	Locations []locations.Location `json:"locations"`
}

// RecipientNode is one entry of a descendant tree: the recipient and its depth
// below the queried node (queried node = 0, direct sub-processors = 1).
type RecipientNode struct {
	Recipient models.Recipient `json:"recipient"`
	Depth     int              `json:"depth"`
}

// Create inserts the recipient and any initial locations atomically: if a
// location fails validation, the recipient creation rolls back with it.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, in CreateRecipientInput) (*RecipientDetail, error) {
	if !validation.IsValidName(in.Name) {
		return nil, apperrors.Validation("name", "name is required")
	}
	if !models.ValidRecipientType(in.Type) {
		return nil, apperrors.Validation("type", "unknown recipient type")
	}
	if in.ParentRecipientID != nil {
		var parent models.Recipient
		err := s.DB.WithContext(ctx).
			Where("recipient_id = ? AND org_id = ?", *in.ParentRecipientID, orgID).
			First(&parent).Error
		if err != nil {
			return nil, apperrors.Translate(err, "parent recipient")
		}
	}

	rec := &models.Recipient{
		OrganizationID:    orgID,
		Name:              in.Name,
		Type:              in.Type,
		ParentRecipientID: in.ParentRecipientID,
		IsActive:          true,
	}
	var locs []locations.Location
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		created, err := s.Locations.CreateManyTx(ctx, tx, orgID,
			locations.Owner{Kind: locations.OwnerRecipient, ID: rec.RecipientID}, in.Locations)
		if err != nil {
			return err
		}
		locs = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RecipientDetail{Recipient: *rec, Locations: locs}, nil
}

// Update applies a partial update. Allowed keys: name, type,
// parent_recipient_id (null detaches). A parent change runs the cycle check
// first; on rejection the stored parent is left untouched.
func (s *Service) Update(ctx context.Context, orgID, recipientID uuid.UUID, fields map[string]interface{}) (*models.Recipient, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("", "no update fields provided")
	}
	var rec models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", recipientID, orgID).
		First(&rec).Error; err != nil {
		return nil, apperrors.Translate(err, "recipient")
	}

	updates := map[string]interface{}{}
	for key, value := range fields {
		switch key {
		case "name":
			name, _ := value.(string)
			if !validation.IsValidName(name) {
				return nil, apperrors.Validation("name", "name is required")
			}
			updates["name"] = name
		case "type":
			str, _ := value.(string)
			if !models.ValidRecipientType(models.RecipientType(str)) {
				return nil, apperrors.Validation("type", "unknown recipient type")
			}
			updates["type"] = str
		case "parent_recipient_id":
			if value == nil {
				updates["parent_recipient_id"] = nil
				continue
			}
			str, ok := value.(string)
			if !ok {
				return nil, apperrors.Validation("parent_recipient_id", "must be a recipient id or null")
			}
			parentID, err := uuid.Parse(str)
			if err != nil {
				return nil, apperrors.Validation("parent_recipient_id", "must be a recipient id or null")
			}
			if err := s.CheckCircularReference(ctx, orgID, parentID, recipientID); err != nil {
				return nil, err
			}
			updates["parent_recipient_id"] = parentID
		default:
			return nil, apperrors.Validation(key, "field is not updatable")
		}
	}

	if err := s.DB.WithContext(ctx).Model(&rec).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns one recipient with its active locations.
func (s *Service) Get(ctx context.Context, orgID, recipientID uuid.UUID) (*RecipientDetail, error) {
	var rec models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", recipientID, orgID).
		First(&rec).Error; err != nil {
		return nil, apperrors.Translate(err, "recipient")
	}
	locs, err := s.Locations.ListActiveForOwner(ctx, orgID,
		locations.Owner{Kind: locations.OwnerRecipient, ID: recipientID})
	if err != nil {
		return nil, err
	}
	return &RecipientDetail{Recipient: rec, Locations: locs}, nil
}

// List returns the org's recipients in creation order.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, activeOnly bool) ([]models.Recipient, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var recs []models.Recipient
	if err := q.Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Deactivate soft-deletes a recipient. Idempotent. Rejected while the
// recipient is still linked to a processing activity — unlink first.
func (s *Service) Deactivate(ctx context.Context, orgID, recipientID uuid.UUID) (*models.Recipient, error) {
	var rec models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", recipientID, orgID).
		First(&rec).Error; err != nil {
		return nil, apperrors.Translate(err, "recipient")
	}
	if !rec.IsActive {
		return &rec, nil
	}
	var linked int64
	if err := s.DB.WithContext(ctx).Model(&models.ActivityRecipient{}).
		Where("recipient_id = ?", recipientID).Count(&linked).Error; err != nil {
		return nil, err
	}
	if linked > 0 {
		return nil, &apperrors.ConflictError{Message: "recipient is linked to a processing activity; unlink it first"}
	}
	if err := s.DB.WithContext(ctx).Model(&rec).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetDescendantTree returns every recipient reachable below recipientID,
// exactly once, tagged with its depth (queried node = 0). The whole org forest
// is loaded once into an id-keyed arena and traversed in memory; the caller's
// context bounds the walk.
func (s *Service) GetDescendantTree(ctx context.Context, orgID, recipientID uuid.UUID) ([]RecipientNode, error) {
	var root models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", recipientID, orgID).
		First(&root).Error; err != nil {
		return nil, apperrors.Translate(err, "recipient")
	}
	arena, children, err := s.loadArena(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return descendants(ctx, arena, children, recipientID)
}

// Forest returns every recipient in the org tagged with its depth below its
// tree root (roots = 0). Recipients whose parent id resolves to nothing are
// treated as roots so imported data cannot hide subtrees from reporting.
func (s *Service) Forest(ctx context.Context, orgID uuid.UUID) ([]RecipientNode, error) {
	arena, children, err := s.loadArena(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rootIDs := make([]uuid.UUID, 0, len(arena))
	for id, rec := range arena {
		if rec.ParentRecipientID == nil {
			rootIDs = append(rootIDs, id)
			continue
		}
		if _, ok := arena[*rec.ParentRecipientID]; !ok {
			rootIDs = append(rootIDs, id)
		}
	}
	// Deterministic order keeps reports stable run to run.
	sort.Slice(rootIDs, func(i, j int) bool {
		return arena[rootIDs[i]].CreatedAt.Before(arena[rootIDs[j]].CreatedAt)
	})

	var out []RecipientNode
	for _, rootID := range rootIDs {
		nodes, err := descendants(ctx, arena, children, rootID)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// GetAncestorChain walks parent links from recipientID to its root, immediate
// parent first. Bounded by a visited set so even corrupted data cannot loop.
func (s *Service) GetAncestorChain(ctx context.Context, orgID, recipientID uuid.UUID) ([]models.Recipient, error) {
	var rec models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", recipientID, orgID).
		First(&rec).Error; err != nil {
		return nil, apperrors.Translate(err, "recipient")
	}
	arena, _, err := s.loadArena(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var chain []models.Recipient
	visited := map[uuid.UUID]bool{recipientID: true}
	current := rec.ParentRecipientID
	for current != nil {
		if ctx.Err() != nil {
			return nil, &apperrors.CancelledError{Operation: "ancestor walk"}
		}
		if visited[*current] {
			break
		}
		visited[*current] = true
		parent, ok := arena[*current]
		if !ok {
			break
		}
		chain = append(chain, *parent)
		current = parent.ParentRecipientID
	}
	return chain, nil
}

// CheckCircularReference rejects setting candidateParentID as recipientID's
// parent when that would create a loop: self-parenting, or recipientID already
// being an ancestor of the candidate.
func (s *Service) CheckCircularReference(ctx context.Context, orgID, candidateParentID, recipientID uuid.UUID) error {
	if candidateParentID == recipientID {
		return &apperrors.CycleError{Message: "a recipient cannot be its own parent"}
	}
	var parent models.Recipient
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND org_id = ?", candidateParentID, orgID).
		First(&parent).Error; err != nil {
		return apperrors.Translate(err, "parent recipient")
	}
	ancestors, err := s.GetAncestorChain(ctx, orgID, candidateParentID)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if a.RecipientID == recipientID {
			return &apperrors.CycleError{Message: "parent change would create a cycle in the recipient hierarchy"}
		}
	}
	return nil
}

// loadArena reads the org's recipients once and indexes them by id and by
// parent, the consistent snapshot every traversal runs over.
func (s *Service) loadArena(ctx context.Context, orgID uuid.UUID) (map[uuid.UUID]*models.Recipient, map[uuid.UUID][]uuid.UUID, error) {
	var all []models.Recipient
	if err := s.DB.WithContext(ctx).Where("org_id = ?", orgID).Find(&all).Error; err != nil {
		return nil, nil, err
	}
	arena := make(map[uuid.UUID]*models.Recipient, len(all))
	children := make(map[uuid.UUID][]uuid.UUID)
	for i := range all {
		arena[all[i].RecipientID] = &all[i]
	}
	for i := range all {
		if p := all[i].ParentRecipientID; p != nil {
			children[*p] = append(children[*p], all[i].RecipientID)
		}
	}
	return arena, children, nil
}

// descendants is the pure BFS over an arena snapshot; traversal never touches
// storage. Visited set guarantees each node appears once.
func descendants(ctx context.Context, arena map[uuid.UUID]*models.Recipient, children map[uuid.UUID][]uuid.UUID, rootID uuid.UUID) ([]RecipientNode, error) {
	root, ok := arena[rootID]
	if !ok {
		return nil, apperrors.NotFound("recipient")
	}

	var out []RecipientNode
	visited := map[uuid.UUID]bool{rootID: true}
	type queued struct {
		id    uuid.UUID
		depth int
	}
	queue := []queued{{id: root.RecipientID, depth: 0}}
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return nil, &apperrors.CancelledError{Operation: "descendant traversal"}
		}
		head := queue[0]
		queue = queue[1:]
		out = append(out, RecipientNode{Recipient: *arena[head.id], Depth: head.depth})
		for _, childID := range children[head.id] {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			queue = append(queue, queued{id: childID, depth: head.depth + 1})
		}
	}
	return out, nil
}

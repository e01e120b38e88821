package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"waypoint/internal/audit"
	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/requestcontext"
)

// GetOrCreatePlace returns the canonical place for attrs.ExternalID, creating
// it on first sight. Attributes supplied for an existing place are ignored.
func (s *Service) GetOrCreatePlace(ctx context.Context, attrs models.PlaceAttributes) (*models.Place, error) {
	candidate, err := models.NewPlace(attrs, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	p, created, err := s.places.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save place")
	}
	if created && s.metrics != nil {
		s.metrics.IncrementPlacesCreated()
	}
	return p, nil
}

// FindPlace looks up a place by its external id, trimmed the same way it
// was when the place was saved.
func (s *Service) FindPlace(ctx context.Context, externalID string) (*models.Place, error) {
	p, err := s.places.FindByExternalID(ctx, strings.TrimSpace(externalID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrLocationNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load place")
	}
	return p, nil
}

// AddLocationToList saves the place (if new) and links it into one of the
// user's lists. The place record stays even if linking fails.
func (s *Service) AddLocationToList(ctx context.Context, userID id.UserID, listID id.ListID, attrs models.PlaceAttributes) (*models.Place, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAddLocation(start)
		}
	}()

	if _, err := s.GetList(ctx, userID, listID); err != nil {
		return nil, err
	}
	p, err := s.GetOrCreatePlace(ctx, attrs)
	if err != nil {
		return nil, err
	}

	m := &models.Membership{ListID: listID, PlaceID: p.ID, CreatedAt: requestcontext.Now(ctx)}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// the list may have been deleted since the check above
		if _, err := s.GetList(ctx, userID, listID); err != nil {
			return err
		}
		return s.memberships.Add(ctx, m)
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.incrementRejected("already_member")
			return nil, models.ErrAlreadyMember
		case errors.Is(err, models.ErrListNotFound), errors.Is(err, sentinel.ErrNotFound):
			return nil, models.ErrListNotFound
		case errors.As(err, new(*dErrors.Error)):
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add location to list")
	}

	s.logAudit(ctx, audit.EventLocationAdded, userID, listID.String(), "place_id", p.ExternalID)
	if s.metrics != nil {
		s.metrics.IncrementLocationsAdded()
	}
	return p, nil
}

// RemoveLocationFromList unlinks a place from one of the user's lists.
func (s *Service) RemoveLocationFromList(ctx context.Context, userID id.UserID, listID id.ListID, externalID string) error {
	if _, err := s.GetList(ctx, userID, listID); err != nil {
		return err
	}
	p, err := s.FindPlace(ctx, externalID)
	if err != nil {
		return err
	}
	if err := s.memberships.Remove(ctx, listID, p.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incrementRejected("not_member")
			return models.ErrNotMember
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove location from list")
	}

	s.logAudit(ctx, audit.EventLocationRemoved, userID, listID.String(), "place_id", p.ExternalID)
	if s.metrics != nil {
		s.metrics.IncrementLocationsRemoved()
	}
	return nil
}

// MembershipMatrix reports, for every list of the user in creation order,
// whether the place is in it. A place never saved yields all false.
func (s *Service) MembershipMatrix(ctx context.Context, userID id.UserID, externalID string) ([]models.MembershipStatus, error) {
	lists, err := s.Lists(ctx, userID)
	if err != nil {
		return nil, err
	}

	containing := make(map[id.ListID]struct{})
	p, err := s.places.FindByExternalID(ctx, strings.TrimSpace(externalID))
	switch {
	case err == nil:
		listIDs, err := s.memberships.ListIDsContaining(ctx, p.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load memberships")
		}
		for _, listID := range listIDs {
			containing[listID] = struct{}{}
		}
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load place")
	}

	matrix := make([]models.MembershipStatus, 0, len(lists))
	for _, l := range lists {
		_, member := containing[l.ID]
		matrix = append(matrix, models.MembershipStatus{ListID: l.ID, ListName: l.Name, IsMember: member})
	}
	return matrix, nil
}

func (s *Service) incrementRejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(reason)
	}
}

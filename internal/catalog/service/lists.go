package service

import (
	"context"
	"errors"
	"strconv"

	"waypoint/internal/audit"
	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/requestcontext"
)

// CreateDefaultLists provisions Favorites and Planned for a new account in
// one unit of work. It fails with ErrDefaultListsExist when the user already
// has default lists. When ctx already carries a transaction (account
// registration), the lists commit or roll back with it.
func (s *Service) CreateDefaultLists(ctx context.Context, userID id.UserID) ([]*models.List, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	lists := models.NewDefaultLists(userID, requestcontext.Now(ctx))
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.lists.CountDefaultByUser(ctx, userID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return models.ErrDefaultListsExist
		}
		return s.lists.CreateMany(ctx, lists)
	})
	if err != nil {
		if errors.Is(err, models.ErrDefaultListsExist) || errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, models.ErrDefaultListsExist
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create default lists")
	}
	if s.metrics != nil {
		s.metrics.IncrementListsCreated(len(lists))
	}
	return lists, nil
}

// CreateList adds a non-default list. Names need not be unique.
func (s *Service) CreateList(ctx context.Context, userID id.UserID, name string) (*models.List, error) {
	l, err := models.NewList(userID, name, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.lists.Create(ctx, l); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create list")
	}

	s.logAudit(ctx, audit.EventListCreated, userID, l.ID.String(), "list_name", l.Name)
	if s.metrics != nil {
		s.metrics.IncrementListsCreated(1)
	}
	return l, nil
}

// Lists returns the user's lists in creation order.
func (s *Service) Lists(ctx context.Context, userID id.UserID) ([]*models.List, error) {
	lists, err := s.lists.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lists")
	}
	return lists, nil
}

// GetList returns one of the user's lists. Lists owned by others resolve as
// not found.
func (s *Service) GetList(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error) {
	l, err := s.lists.FindByUserAndID(ctx, userID, listID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrListNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load list")
	}
	return l, nil
}

// ListDetails returns a list with its places in insertion order.
func (s *Service) ListDetails(ctx context.Context, userID id.UserID, listID id.ListID) (*models.ListDetails, error) {
	l, err := s.GetList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	places, err := s.placesOf(ctx, listID)
	if err != nil {
		return nil, err
	}
	return &models.ListDetails{List: l, Places: places}, nil
}

// ListPlaces returns the places in a list in insertion order.
func (s *Service) ListPlaces(ctx context.Context, userID id.UserID, listID id.ListID) ([]*models.Place, error) {
	if _, err := s.GetList(ctx, userID, listID); err != nil {
		return nil, err
	}
	return s.placesOf(ctx, listID)
}

func (s *Service) placesOf(ctx context.Context, listID id.ListID) ([]*models.Place, error) {
	placeIDs, err := s.memberships.PlaceIDsByList(ctx, listID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load list members")
	}
	places, err := s.places.FindByIDs(ctx, placeIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load places")
	}
	return places, nil
}

// DeleteList removes a non-default list and its memberships in one unit of
// work and returns the removed list. Places are kept.
func (s *Service) DeleteList(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error) {
	var (
		deleted *models.List
		removed int
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		l, err := s.lists.FindByUserAndIDForUpdate(ctx, userID, listID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrListNotFound
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock list")
		}
		if err := l.CanDelete(); err != nil {
			return err
		}
		removed, err = s.memberships.DeleteByList(ctx, listID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete list members")
		}
		if err := s.lists.Delete(ctx, listID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrListNotFound
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete list")
		}
		deleted = l
		return nil
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			s.logger.ErrorContext(ctx, "failed to delete list",
				"list_id", listID.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}

	s.logAudit(ctx, audit.EventListDeleted, userID, listID.String(), "memberships_removed", strconv.Itoa(removed))
	if s.metrics != nil {
		s.metrics.IncrementListsDeleted()
	}
	return deleted, nil
}

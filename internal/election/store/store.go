// Package store persists elections. Implementations return
// pkg/platform/sentinel errors; the service layer translates them.
package store

import (
	"context"

	"ballotbox/internal/election/models"
	id "ballotbox/pkg/domain"
)

// ElectionStore is the persistence port for elections. Elections are
// immutable after creation, so there is no update operation.
type ElectionStore interface {
	Create(ctx context.Context, election *models.Election) error
	FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	// List returns elections in creation order.
	List(ctx context.Context) ([]*models.Election, error)
	// Delete removes the election, sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, electionID id.ElectionID) error
	Count(ctx context.Context) (int, error)
}

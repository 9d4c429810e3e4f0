package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrTreatmentNotFound = errors.New("treatment not found")
)

// Repository contains all storage interactions needed by the catalog.
type Repository interface {
	ListTreatments(ctx context.Context) ([]Treatment, error)
	GetTreatmentByName(ctx context.Context, name string) (*Treatment, error)

	// UpsertTreatment matches on Name. created reports whether a new row was inserted.
	UpsertTreatment(ctx context.Context, t Treatment) (saved *Treatment, created bool, err error)
	DeleteTreatment(ctx context.Context, id uuid.UUID) error
}

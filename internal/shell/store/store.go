package store

import (
	"context"
	"slices"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/search"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for reference data.
//
// Reference rows are written only by the batch loader. The service reads
// them to validate submissions and to back the lookup endpoints.
type Store interface {
	// Validation lookups. Codes are business codes, matched exactly.
	WardInTownship(ctx context.Context, townshipCode, wardCode string) (bool, error)
	VillageInTownship(ctx context.Context, townshipCode, villageCode string) (bool, error)
	ClassificationCodeExists(ctx context.Context, code string) (bool, error)

	// Listing
	ListTownships(ctx context.Context) ([]domain.Township, error)
	SearchWards(ctx context.Context, townshipUID string, p search.Params) ([]domain.Area, error)
	SearchVillages(ctx context.Context, townshipUID string, p search.Params) ([]domain.Area, error)
	SearchClassificationCodes(ctx context.Context, p search.Params) (domain.ClassificationPage, error)

	// Loader writes
	UpsertTownships(ctx context.Context, options []domain.AreaOption) (map[string]int, error)
	UpsertWards(ctx context.Context, rows []domain.LinkedOption) error
	UpsertVillages(ctx context.Context, rows []domain.LinkedOption) error

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Township Snapshot
// =============================================================================

// TownshipSnapshot is the township listing captured once at startup.
// It is never mutated after construction.
type TownshipSnapshot struct {
	areas []domain.Area
}

// NewTownshipSnapshot builds a snapshot from rows in listing order.
func NewTownshipSnapshot(townships []domain.Township) TownshipSnapshot {
	areas := make([]domain.Area, 0, len(townships))
	for _, t := range townships {
		areas = append(areas, t.Area())
	}
	return TownshipSnapshot{areas: areas}
}

// LoadTownshipSnapshot reads every township ordered by name.
func LoadTownshipSnapshot(ctx context.Context, s Store) (TownshipSnapshot, error) {
	townships, err := s.ListTownships(ctx)
	if err != nil {
		return TownshipSnapshot{}, err
	}
	return NewTownshipSnapshot(townships), nil
}

// Areas returns a copy of the listing.
func (s TownshipSnapshot) Areas() []domain.Area {
	if s.areas == nil {
		return []domain.Area{}
	}
	return slices.Clone(s.areas)
}

// Len returns the number of townships in the snapshot.
func (s TownshipSnapshot) Len() int {
	return len(s.areas)
}

package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// CompanyStorage implements the CompanyStorage interface for Badger.
// Companies are keyed by normalized name.
type CompanyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCompanyStorage creates a new CompanyStorage instance.
func NewCompanyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CompanyStorage {
	return &CompanyStorage{db: db, logger: logger}
}

func (s *CompanyStorage) SaveCompany(ctx context.Context, company *models.Company) error {
	if company.Name == "" {
		return fmt.Errorf("company name is required")
	}
	company.Name = models.NormalizeCompanyName(company.Name)
	company.UpdatedAt = time.Now().UTC()
	if err := s.db.Store().Upsert(company.Name, company); err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

func (s *CompanyStorage) GetCompany(ctx context.Context, normalizedName string) (*models.Company, error) {
	var company models.Company
	if err := s.db.Store().Get(models.NormalizeCompanyName(normalizedName), &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

// UpdateCompanyCAS updates a company inside one transaction only when the
// stored UpdatedAt still equals expected. Enrichment writers use this so a
// concurrent update is never silently overwritten.
func (s *CompanyStorage) UpdateCompanyCAS(ctx context.Context, company *models.Company, expected time.Time) error {
	key := models.NormalizeCompanyName(company.Name)
	err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var current models.Company
		if err := s.db.Store().TxGet(txn, key, &current); err != nil {
			if err == badgerhold.ErrNotFound {
				return interfaces.ErrNotFound
			}
			return err
		}
		if !current.UpdatedAt.Equal(expected) {
			return interfaces.ErrConflict
		}
		company.Name = key
		company.UpdatedAt = time.Now().UTC()
		return s.db.Store().TxUpsert(txn, key, company)
	})
	if err == interfaces.ErrConflict || err == interfaces.ErrNotFound {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// TransitionStatus applies a company status change inside one transaction,
// rejecting anything outside the state machine.
func (s *CompanyStorage) TransitionStatus(ctx context.Context, normalizedName string, to models.CompanyAnalysisStatus) (*models.Company, error) {
	key := models.NormalizeCompanyName(normalizedName)
	var updated models.Company
	err := s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var current models.Company
		if err := s.db.Store().TxGet(txn, key, &current); err != nil {
			if err == badgerhold.ErrNotFound {
				return interfaces.ErrNotFound
			}
			return err
		}
		if !current.AnalysisStatus.CanTransition(to) {
			return models.Errorf(models.ErrInvalidState,
				"company %s: illegal transition %s -> %s", key, current.AnalysisStatus, to)
		}
		current.AnalysisStatus = to
		current.UpdatedAt = time.Now().UTC()
		updated = current
		return s.db.Store().TxUpsert(txn, key, &current)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

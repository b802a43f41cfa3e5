package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db      *BadgerDB
	task    interfaces.TaskStorage
	company interfaces.CompanyStorage
	source  interfaces.SourceStorage
	listing interfaces.ListingStorage
	match   interfaces.MatchStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return NewManagerWithDB(logger, db), nil
}

// NewManagerWithDB builds a manager over an existing connection. Tests use
// this with a temp-dir database.
func NewManagerWithDB(logger arbor.ILogger, db *BadgerDB) interfaces.StorageManager {
	manager := &Manager{
		db:      db,
		task:    NewTaskStorage(db, logger),
		company: NewCompanyStorage(db, logger),
		source:  NewSourceStorage(db, logger),
		listing: NewListingStorage(db, logger),
		match:   NewMatchStorage(db, logger),
		kv:      NewKVStorage(db, logger),
		logger:  logger,
	}
	logger.Info().Msg("Badger storage manager initialized")
	return manager
}

// TaskStorage returns the task storage interface.
func (m *Manager) TaskStorage() interfaces.TaskStorage { return m.task }

// CompanyStorage returns the company storage interface.
func (m *Manager) CompanyStorage() interfaces.CompanyStorage { return m.company }

// SourceStorage returns the job source storage interface.
func (m *Manager) SourceStorage() interfaces.SourceStorage { return m.source }

// ListingStorage returns the job listing storage interface.
func (m *Manager) ListingStorage() interfaces.ListingStorage { return m.listing }

// MatchStorage returns the job match storage interface.
func (m *Manager) MatchStorage() interfaces.MatchStorage { return m.match }

// KeyValueStorage returns the key/value storage interface.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }

// DB returns the underlying database connection.
func (m *Manager) DB() *BadgerDB { return m.db }

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/common"
	"github.com/ternarybob/riskpulse/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	corpus   interfaces.CorpusStorage
	document interfaces.DocumentStorage
	run      interfaces.RunStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		corpus:   NewCorpusStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		run:      NewRunStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Str("path", config.Path).Bool("in_memory", config.InMemory).Msg("Badger storage manager initialized")

	return manager, nil
}

// CorpusStorage returns the Corpus storage interface
func (m *Manager) CorpusStorage() interfaces.CorpusStorage {
	return m.corpus
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// RunStorage returns the Run storage interface
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.run
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// file: internal/database/mock_store.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package database

// MockStore is a simple mock implementation for testing services.
// Every method delegates to the matching Func field when set and otherwise
// returns zero values.
type MockStore struct {
	CloseFunc func() error
	ResetFunc func() error

	// Collection methods
	GetAllCollectionsFunc   func() ([]Collection, error)
	GetCollectionByIDFunc   func(id string) (*Collection, error)
	GetCollectionByNameFunc func(name string) (*Collection, error)
	CreateCollectionFunc    func(name string, flags map[string]bool) (*Collection, error)
	DeleteCollectionFunc    func(id string) error
	SetCollectionFlagFunc   func(id, flag string, value bool) error
	CountCollectionsFunc    func() (int, error)

	// Track methods
	AddTracksFunc func(collectionID string, tracks []Track) error
	GetTracksFunc func(collectionID string) ([]Track, error)

	// Ledger methods
	HasLedgerEntryFunc     func(key string) (bool, error)
	PutLedgerEntryFunc     func(key string) error
	DeleteLedgerEntryFunc  func(key string) error
	ClearLedgerFunc        func() error
	CountLedgerEntriesFunc func() (int, error)

	// Settings
	GetSettingFunc     func(key string) (*Setting, error)
	SetSettingFunc     func(key, value, typ string, isSecret bool) error
	GetAllSettingsFunc func() ([]Setting, error)
	DeleteSettingFunc  func(key string) error

	// Operations
	CreateOperationFunc       func(id, opType string, folderPath *string) (*Operation, error)
	GetOperationByIDFunc      func(id string) (*Operation, error)
	GetRecentOperationsFunc   func(limit int) ([]Operation, error)
	UpdateOperationStatusFunc func(id, status string, progress, total int, message string) error
	UpdateOperationErrorFunc  func(id, errorMessage string) error
	AddOperationLogFunc       func(operationID, level, message string, details *string) error
	GetOperationLogsFunc      func(operationID string) ([]OperationLog, error)
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockStore) Reset() error {
	if m.ResetFunc != nil {
		return m.ResetFunc()
	}
	return nil
}

func (m *MockStore) GetAllCollections() ([]Collection, error) {
	if m.GetAllCollectionsFunc != nil {
		return m.GetAllCollectionsFunc()
	}
	return nil, nil
}

func (m *MockStore) GetCollectionByID(id string) (*Collection, error) {
	if m.GetCollectionByIDFunc != nil {
		return m.GetCollectionByIDFunc(id)
	}
	return nil, nil
}

func (m *MockStore) GetCollectionByName(name string) (*Collection, error) {
	if m.GetCollectionByNameFunc != nil {
		return m.GetCollectionByNameFunc(name)
	}
	return nil, nil
}

func (m *MockStore) CreateCollection(name string, flags map[string]bool) (*Collection, error) {
	if m.CreateCollectionFunc != nil {
		return m.CreateCollectionFunc(name, flags)
	}
	return &Collection{ID: name, Name: name, Flags: copyFlags(flags)}, nil
}

func (m *MockStore) DeleteCollection(id string) error {
	if m.DeleteCollectionFunc != nil {
		return m.DeleteCollectionFunc(id)
	}
	return nil
}

func (m *MockStore) SetCollectionFlag(id, flag string, value bool) error {
	if m.SetCollectionFlagFunc != nil {
		return m.SetCollectionFlagFunc(id, flag, value)
	}
	return nil
}

func (m *MockStore) CountCollections() (int, error) {
	if m.CountCollectionsFunc != nil {
		return m.CountCollectionsFunc()
	}
	return 0, nil
}

func (m *MockStore) AddTracks(collectionID string, tracks []Track) error {
	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(collectionID, tracks)
	}
	return nil
}

func (m *MockStore) GetTracks(collectionID string) ([]Track, error) {
	if m.GetTracksFunc != nil {
		return m.GetTracksFunc(collectionID)
	}
	return nil, nil
}

func (m *MockStore) HasLedgerEntry(key string) (bool, error) {
	if m.HasLedgerEntryFunc != nil {
		return m.HasLedgerEntryFunc(key)
	}
	return false, nil
}

func (m *MockStore) PutLedgerEntry(key string) error {
	if m.PutLedgerEntryFunc != nil {
		return m.PutLedgerEntryFunc(key)
	}
	return nil
}

func (m *MockStore) DeleteLedgerEntry(key string) error {
	if m.DeleteLedgerEntryFunc != nil {
		return m.DeleteLedgerEntryFunc(key)
	}
	return nil
}

func (m *MockStore) ClearLedger() error {
	if m.ClearLedgerFunc != nil {
		return m.ClearLedgerFunc()
	}
	return nil
}

func (m *MockStore) CountLedgerEntries() (int, error) {
	if m.CountLedgerEntriesFunc != nil {
		return m.CountLedgerEntriesFunc()
	}
	return 0, nil
}

func (m *MockStore) GetSetting(key string) (*Setting, error) {
	if m.GetSettingFunc != nil {
		return m.GetSettingFunc(key)
	}
	return nil, ErrSettingNotFound
}

func (m *MockStore) SetSetting(key, value, typ string, isSecret bool) error {
	if m.SetSettingFunc != nil {
		return m.SetSettingFunc(key, value, typ, isSecret)
	}
	return nil
}

func (m *MockStore) GetAllSettings() ([]Setting, error) {
	if m.GetAllSettingsFunc != nil {
		return m.GetAllSettingsFunc()
	}
	return nil, nil
}

func (m *MockStore) DeleteSetting(key string) error {
	if m.DeleteSettingFunc != nil {
		return m.DeleteSettingFunc(key)
	}
	return nil
}

func (m *MockStore) CreateOperation(id, opType string, folderPath *string) (*Operation, error) {
	if m.CreateOperationFunc != nil {
		return m.CreateOperationFunc(id, opType, folderPath)
	}
	return &Operation{ID: id, Type: opType, Status: "pending", FolderPath: folderPath}, nil
}

func (m *MockStore) GetOperationByID(id string) (*Operation, error) {
	if m.GetOperationByIDFunc != nil {
		return m.GetOperationByIDFunc(id)
	}
	return nil, nil
}

func (m *MockStore) GetRecentOperations(limit int) ([]Operation, error) {
	if m.GetRecentOperationsFunc != nil {
		return m.GetRecentOperationsFunc(limit)
	}
	return nil, nil
}

func (m *MockStore) UpdateOperationStatus(id, status string, progress, total int, message string) error {
	if m.UpdateOperationStatusFunc != nil {
		return m.UpdateOperationStatusFunc(id, status, progress, total, message)
	}
	return nil
}

func (m *MockStore) UpdateOperationError(id, errorMessage string) error {
	if m.UpdateOperationErrorFunc != nil {
		return m.UpdateOperationErrorFunc(id, errorMessage)
	}
	return nil
}

func (m *MockStore) AddOperationLog(operationID, level, message string, details *string) error {
	if m.AddOperationLogFunc != nil {
		return m.AddOperationLogFunc(operationID, level, message, details)
	}
	return nil
}

func (m *MockStore) GetOperationLogs(operationID string) ([]OperationLog, error) {
	if m.GetOperationLogsFunc != nil {
		return m.GetOperationLogsFunc(operationID)
	}
	return nil, nil
}

// file: internal/database/pebble_store.go
// version: 2.1.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble/v2"
	ulid "github.com/oklog/ulid/v2"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - collection:<id>                        -> Collection JSON
// - collection:name:<name>                 -> collection_id (for lookups)
// - track:<collection_id>:<position>       -> Track JSON
// - ledger:<key>                           -> "1"
// - setting:<key>                          -> Setting JSON
// - operation:<id>                         -> Operation JSON
// - operationlog:<operation_id>:<seq>      -> OperationLog JSON
// - counter:track:<collection_id>          -> next track position
// - counter:operationlog                   -> next operation log ID
type PebbleStore struct {
	db *pebble.DB
}

const (
	prefixCollection     = "collection:"
	prefixCollectionName = "collection:name:"
	prefixTrack          = "track:"
	prefixLedger         = "ledger:"
	prefixOperation      = "operation:"
	prefixOperationLog   = "operationlog:"
)

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}

	store := &PebbleStore{db: db}

	key := []byte("counter:operationlog")
	if _, closer, err := db.Get(key); err == pebble.ErrNotFound {
		if err := db.Set(key, []byte("1"), pebble.Sync); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize counter operationlog: %w", err)
		}
	} else if err == nil {
		closer.Close()
	} else {
		db.Close()
		return nil, fmt.Errorf("failed to check counter operationlog: %w", err)
	}

	return store, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Reset removes every key from the store.
func (p *PebbleStore) Reset() error {
	if err := p.db.DeleteRange([]byte{0x00}, []byte{0xff}, pebble.Sync); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return p.db.Set([]byte("counter:operationlog"), []byte("1"), pebble.Sync)
}

// Helper functions

func prefixBounds(prefix string) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "\xff"),
	}
}

func (p *PebbleStore) nextID(counter string) (int, error) {
	key := []byte("counter:" + counter)

	id := 1
	value, closer, err := p.db.Get(key)
	switch {
	case err == pebble.ErrNotFound:
	case err != nil:
		return 0, err
	default:
		id, err = strconv.Atoi(string(value))
		closer.Close()
		if err != nil {
			return 0, err
		}
	}

	if err := p.db.Set(key, []byte(strconv.Itoa(id+1)), pebble.Sync); err != nil {
		return 0, err
	}
	return id, nil
}

func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *PebbleStore) getJSON(key string, out any) (bool, error) {
	value, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()

	if err := json.Unmarshal(value, out); err != nil {
		return false, err
	}
	return true, nil
}

// Collection operations

func (p *PebbleStore) GetAllCollections() ([]Collection, error) {
	var collections []Collection
	iter, err := p.db.NewIter(prefixBounds(prefixCollection))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		// Skip index keys
		if strings.HasPrefix(string(iter.Key()), prefixCollectionName) {
			continue
		}

		var collection Collection
		if err := json.Unmarshal(iter.Value(), &collection); err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}

	sort.SliceStable(collections, func(i, j int) bool {
		return collections[i].CreatedAt.Before(collections[j].CreatedAt)
	})
	return collections, nil
}

// GetCollectionByID returns nil for ids that are not ULIDs, which keeps
// lookups out of the collection:name: index.
func (p *PebbleStore) GetCollectionByID(id string) (*Collection, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, nil
	}
	var collection Collection
	found, err := p.getJSON(prefixCollection+id, &collection)
	if err != nil || !found {
		return nil, err
	}
	return &collection, nil
}

func (p *PebbleStore) GetCollectionByName(name string) (*Collection, error) {
	value, closer, err := p.db.Get([]byte(prefixCollectionName + name))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := string(value)
	closer.Close()

	return p.GetCollectionByID(id)
}

func (p *PebbleStore) CreateCollection(name string, flags map[string]bool) (*Collection, error) {
	existing, err := p.GetCollectionByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("collection %q already exists", name)
	}

	id, err := newULID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	collection := &Collection{
		ID:        id,
		Name:      name,
		Flags:     copyFlags(flags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(collection)
	if err != nil {
		return nil, err
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(prefixCollection+id), data, nil); err != nil {
		return nil, err
	}
	if err := batch.Set([]byte(prefixCollectionName+name), []byte(id), nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, err
	}

	return collection, nil
}

func (p *PebbleStore) DeleteCollection(id string) error {
	collection, err := p.GetCollectionByID(id)
	if err != nil {
		return err
	}
	if collection == nil {
		return ErrCollectionNotFound
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	trackPrefix := prefixTrack + id + ":"
	if err := batch.DeleteRange([]byte(trackPrefix), []byte(trackPrefix+"\xff"), nil); err != nil {
		return err
	}
	if err := batch.Delete([]byte("counter:track:"+id), nil); err != nil {
		return err
	}
	if err := batch.Delete([]byte(prefixCollectionName+collection.Name), nil); err != nil {
		return err
	}
	if err := batch.Delete([]byte(prefixCollection+id), nil); err != nil {
		return err
	}

	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) SetCollectionFlag(id, flag string, value bool) error {
	collection, err := p.GetCollectionByID(id)
	if err != nil {
		return err
	}
	if collection == nil {
		return ErrCollectionNotFound
	}

	if collection.Flags == nil {
		collection.Flags = make(map[string]bool)
	}
	collection.Flags[flag] = value
	collection.UpdatedAt = time.Now()

	data, err := json.Marshal(collection)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(prefixCollection+id), data, pebble.Sync)
}

func (p *PebbleStore) CountCollections() (int, error) {
	collections, err := p.GetAllCollections()
	if err != nil {
		return 0, err
	}
	return len(collections), nil
}

// Track operations

func (p *PebbleStore) AddTracks(collectionID string, tracks []Track) error {
	collection, err := p.GetCollectionByID(collectionID)
	if err != nil {
		return err
	}
	if collection == nil {
		return ErrCollectionNotFound
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for i := range tracks {
		position, err := p.nextID("track:" + collectionID)
		if err != nil {
			return err
		}
		id, err := newULID()
		if err != nil {
			return err
		}

		track := tracks[i]
		track.ID = id
		track.CollectionID = collectionID
		track.Position = position
		track.CreatedAt = time.Now()

		data, err := json.Marshal(track)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s%s:%08d", prefixTrack, collectionID, position)
		if err := batch.Set([]byte(key), data, nil); err != nil {
			return err
		}
		tracks[i] = track
	}

	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) GetTracks(collectionID string) ([]Track, error) {
	var tracks []Track
	iter, err := p.db.NewIter(prefixBounds(prefixTrack + collectionID + ":"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var track Track
		if err := json.Unmarshal(iter.Value(), &track); err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Ledger operations

func (p *PebbleStore) HasLedgerEntry(key string) (bool, error) {
	_, closer, err := p.db.Get([]byte(prefixLedger + key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleStore) PutLedgerEntry(key string) error {
	return p.db.Set([]byte(prefixLedger+key), []byte("1"), pebble.Sync)
}

func (p *PebbleStore) DeleteLedgerEntry(key string) error {
	return p.db.Delete([]byte(prefixLedger+key), pebble.Sync)
}

func (p *PebbleStore) ClearLedger() error {
	return p.db.DeleteRange([]byte(prefixLedger), []byte(prefixLedger+"\xff"), pebble.Sync)
}

func (p *PebbleStore) CountLedgerEntries() (int, error) {
	iter, err := p.db.NewIter(prefixBounds(prefixLedger))
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	return count, nil
}

// Operation operations

func (p *PebbleStore) CreateOperation(id, opType string, folderPath *string) (*Operation, error) {
	op := &Operation{
		ID:         id,
		Type:       opType,
		Status:     "pending",
		FolderPath: folderPath,
		CreatedAt:  time.Now(),
	}
	if err := p.putOperation(op); err != nil {
		return nil, err
	}
	return op, nil
}

func (p *PebbleStore) putOperation(op *Operation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(prefixOperation+op.ID), data, pebble.Sync)
}

func (p *PebbleStore) GetOperationByID(id string) (*Operation, error) {
	var op Operation
	found, err := p.getJSON(prefixOperation+id, &op)
	if err != nil || !found {
		return nil, err
	}
	return &op, nil
}

func (p *PebbleStore) GetRecentOperations(limit int) ([]Operation, error) {
	var ops []Operation
	iter, err := p.db.NewIter(prefixBounds(prefixOperation))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var op Operation
		if err := json.Unmarshal(iter.Value(), &op); err != nil {
			continue
		}
		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

func (p *PebbleStore) UpdateOperationStatus(id, status string, progress, total int, message string) error {
	op, err := p.GetOperationByID(id)
	if err != nil {
		return err
	}
	if op == nil {
		return fmt.Errorf("operation not found: %s", id)
	}

	now := time.Now()
	op.Status = status
	op.Progress = progress
	op.Total = total
	op.Message = message
	if status == "running" && op.StartedAt == nil {
		op.StartedAt = &now
	}
	if status == "completed" || status == "failed" || status == "canceled" {
		op.CompletedAt = &now
	}
	return p.putOperation(op)
}

func (p *PebbleStore) UpdateOperationError(id, errorMessage string) error {
	op, err := p.GetOperationByID(id)
	if err != nil {
		return err
	}
	if op == nil {
		return fmt.Errorf("operation not found: %s", id)
	}

	now := time.Now()
	op.Status = "failed"
	op.ErrorMessage = &errorMessage
	op.CompletedAt = &now
	return p.putOperation(op)
}

func (p *PebbleStore) AddOperationLog(operationID, level, message string, details *string) error {
	id, err := p.nextID("operationlog")
	if err != nil {
		return err
	}

	entry := OperationLog{
		ID:          id,
		OperationID: operationID,
		Level:       level,
		Message:     message,
		Details:     details,
		CreatedAt:   time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%s:%010d", prefixOperationLog, operationID, id)
	return p.db.Set([]byte(key), data, pebble.Sync)
}

func (p *PebbleStore) GetOperationLogs(operationID string) ([]OperationLog, error) {
	var logs []OperationLog
	iter, err := p.db.NewIter(prefixBounds(prefixOperationLog + operationID + ":"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var entry OperationLog
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

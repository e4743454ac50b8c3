// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"custodycore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// AnimalRecord aliases domain.AnimalRecord for in-memory persistence operations.
	AnimalRecord = domain.AnimalRecord
	// WorklistEntry aliases domain.WorklistEntry.
	WorklistEntry = domain.WorklistEntry
	// ExitRecord aliases domain.ExitRecord.
	ExitRecord = domain.ExitRecord
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	animals   map[string]AnimalRecord
	worklists map[string]WorklistEntry
	exits     map[string]ExitRecord
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Animals   map[string]AnimalRecord  `json:"animals"`
	Worklists map[string]WorklistEntry `json:"worklists"`
	Exits     map[string]ExitRecord    `json:"exits"`
}

func newMemoryState() memoryState {
	return memoryState{
		animals:   make(map[string]AnimalRecord),
		worklists: make(map[string]WorklistEntry),
		exits:     make(map[string]ExitRecord),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Animals:   make(map[string]AnimalRecord, len(state.animals)),
		Worklists: make(map[string]WorklistEntry, len(state.worklists)),
		Exits:     make(map[string]ExitRecord, len(state.exits)),
	}
	for k, v := range state.animals {
		s.Animals[k] = cloneAnimal(v)
	}
	for k, v := range state.worklists {
		s.Worklists[k] = cloneWorklist(v)
	}
	for k, v := range state.exits {
		s.Exits[k] = cloneExit(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Animals {
		state.animals[k] = cloneAnimal(v)
	}
	for k, v := range s.Worklists {
		state.worklists[k] = cloneWorklist(v)
	}
	for k, v := range s.Exits {
		state.exits[k] = cloneExit(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable backends: nil maps
// become empty, duplicate active worklist entries per (animal, track) keep
// only the earliest, and entries already converted to an exit record are
// pruned so a crash between legacy non-atomic finalize steps converges.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Animals == nil {
		snapshot.Animals = map[string]AnimalRecord{}
	}
	if snapshot.Worklists == nil {
		snapshot.Worklists = map[string]WorklistEntry{}
	}
	if snapshot.Exits == nil {
		snapshot.Exits = map[string]ExitRecord{}
	}

	finalized := make(map[string]bool, len(snapshot.Exits))
	for _, exit := range snapshot.Exits {
		if exit.WorklistID != nil {
			finalized[*exit.WorklistID] = true
		}
	}

	earliest := make(map[string]WorklistEntry)
	for id, entry := range snapshot.Worklists {
		if entry.Status == "" || !domain.ValidStatus(entry.Track, entry.Status) {
			delete(snapshot.Worklists, id)
			continue
		}
		if finalized[id] {
			delete(snapshot.Worklists, id)
			continue
		}
		key := entry.AnimalID + "|" + string(entry.Track)
		kept, ok := earliest[key]
		if !ok {
			earliest[key] = entry
			continue
		}
		if entry.CreatedAt.Before(kept.CreatedAt) ||
			(entry.CreatedAt.Equal(kept.CreatedAt) && entry.ID < kept.ID) {
			delete(snapshot.Worklists, kept.ID)
			earliest[key] = entry
		} else {
			delete(snapshot.Worklists, id)
		}
	}

	for id, animal := range snapshot.Animals {
		if animal.Status == "" {
			animal.Status = domain.AnimalStatusInCustody
			snapshot.Animals[id] = animal
		}
	}

	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.animals {
		cloned.animals[k] = cloneAnimal(v)
	}
	for k, v := range s.worklists {
		cloned.worklists[k] = cloneWorklist(v)
	}
	for k, v := range s.exits {
		cloned.exits[k] = cloneExit(v)
	}
	return cloned
}

func cloneAnimal(a AnimalRecord) AnimalRecord {
	cp := a
	if a.PhotoReference != nil {
		v := *a.PhotoReference
		cp.PhotoReference = &v
	}
	if a.Classification != nil {
		v := *a.Classification
		cp.Classification = &v
	}
	if a.LocationReference != nil {
		v := *a.LocationReference
		cp.LocationReference = &v
	}
	return cp
}

func cloneWorklist(w WorklistEntry) WorklistEntry { return w }

func cloneExit(e ExitRecord) ExitRecord {
	cp := e
	if e.WorklistID != nil {
		v := *e.WorklistID
		cp.WorklistID = &v
	}
	return cp
}

// Store provides an in-memory transactional store for the custody domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the committed state with the supplied snapshot after
// migration.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the engine evaluating commits against this store.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// SetNowFunc overrides the transaction clock. Tests use this for fixed dates.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// NowFunc returns the clock used to stamp transactions.
func (s *Store) NowFunc() func() time.Time {
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListAnimals returns all entry-ledger records within the snapshot.
func (v transactionView) ListAnimals() []AnimalRecord {
	out := make([]AnimalRecord, 0, len(v.state.animals))
	for _, a := range v.state.animals {
		out = append(out, cloneAnimal(a))
	}
	return out
}

// ListWorklistEntries returns all active worklist entries across tracks.
func (v transactionView) ListWorklistEntries() []WorklistEntry {
	out := make([]WorklistEntry, 0, len(v.state.worklists))
	for _, w := range v.state.worklists {
		out = append(out, cloneWorklist(w))
	}
	return out
}

// ListExitRecords returns the exit ledger.
func (v transactionView) ListExitRecords() []ExitRecord {
	out := make([]ExitRecord, 0, len(v.state.exits))
	for _, e := range v.state.exits {
		out = append(out, cloneExit(e))
	}
	return out
}

// FindAnimal retrieves an entry-ledger record by ID from the snapshot.
func (v transactionView) FindAnimal(id string) (AnimalRecord, bool) {
	a, ok := v.state.animals[id]
	if !ok {
		return AnimalRecord{}, false
	}
	return cloneAnimal(a), true
}

// FindWorklistEntry retrieves a worklist entry by ID from the snapshot.
func (v transactionView) FindWorklistEntry(id string) (WorklistEntry, bool) {
	w, ok := v.state.worklists[id]
	if !ok {
		return WorklistEntry{}, false
	}
	return cloneWorklist(w), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the post-mutation snapshot; blocking
// violations abort the commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindAnimal retrieves an animal from the transactional state.
func (tx *transaction) FindAnimal(id string) (AnimalRecord, bool) {
	a, ok := tx.state.animals[id]
	if !ok {
		return AnimalRecord{}, false
	}
	return cloneAnimal(a), true
}

// FindWorklistEntry retrieves a worklist entry from the transactional state.
func (tx *transaction) FindWorklistEntry(id string) (WorklistEntry, bool) {
	w, ok := tx.state.worklists[id]
	if !ok {
		return WorklistEntry{}, false
	}
	return cloneWorklist(w), true
}

// FindExitByKey retrieves an exit record by idempotency key.
func (tx *transaction) FindExitByKey(key string) (ExitRecord, bool) {
	if key == "" {
		return ExitRecord{}, false
	}
	for _, e := range tx.state.exits {
		if e.IdempotencyKey == key {
			return cloneExit(e), true
		}
	}
	return ExitRecord{}, false
}

// CreateAnimal stores a new entry-ledger record within the transaction.
func (tx *transaction) CreateAnimal(a AnimalRecord) (AnimalRecord, error) {
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	if _, exists := tx.state.animals[a.ID]; exists {
		return AnimalRecord{}, fmt.Errorf("animal %q already exists", a.ID)
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	a.Version = 1
	if a.Status == "" {
		a.Status = domain.AnimalStatusInCustody
	}
	tx.state.animals[a.ID] = cloneAnimal(a)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionCreate, After: cloneAnimal(a)})
	return cloneAnimal(a), nil
}

// UpdateAnimal mutates an entry-ledger record using the provided mutator.
func (tx *transaction) UpdateAnimal(id string, mutator func(*AnimalRecord) error) (AnimalRecord, error) {
	current, ok := tx.state.animals[id]
	if !ok {
		return AnimalRecord{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	before := cloneAnimal(current)
	if err := mutator(&current); err != nil {
		return AnimalRecord{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	current.Version = before.Version + 1
	tx.state.animals[id] = cloneAnimal(current)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionUpdate, Before: before, After: cloneAnimal(current)})
	return cloneAnimal(current), nil
}

// DeleteAnimal removes an entry-ledger record from the transaction state.
func (tx *transaction) DeleteAnimal(id string) error {
	current, ok := tx.state.animals[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	delete(tx.state.animals, id)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionDelete, Before: cloneAnimal(current)})
	return nil
}

// CreateWorklistEntry queues an animal on a track.
func (tx *transaction) CreateWorklistEntry(w WorklistEntry) (WorklistEntry, error) {
	if w.ID == "" {
		w.ID = tx.store.newID()
	}
	if _, exists := tx.state.worklists[w.ID]; exists {
		return WorklistEntry{}, fmt.Errorf("worklist entry %q already exists", w.ID)
	}
	w.CreatedAt = tx.now
	w.UpdatedAt = tx.now
	w.Version = 1
	tx.state.worklists[w.ID] = cloneWorklist(w)
	tx.recordChange(Change{Entity: domain.EntityWorklist, Action: domain.ActionCreate, After: cloneWorklist(w)})
	return cloneWorklist(w), nil
}

// UpdateWorklistEntry mutates a worklist entry.
func (tx *transaction) UpdateWorklistEntry(id string, mutator func(*WorklistEntry) error) (WorklistEntry, error) {
	current, ok := tx.state.worklists[id]
	if !ok {
		return WorklistEntry{}, domain.NotFoundError{Entity: domain.EntityWorklist, ID: id}
	}
	before := cloneWorklist(current)
	if err := mutator(&current); err != nil {
		return WorklistEntry{}, err
	}
	current.ID = id
	current.Track = before.Track
	current.UpdatedAt = tx.now
	current.Version = before.Version + 1
	tx.state.worklists[id] = cloneWorklist(current)
	tx.recordChange(Change{Entity: domain.EntityWorklist, Action: domain.ActionUpdate, Before: before, After: cloneWorklist(current)})
	return cloneWorklist(current), nil
}

// DeleteWorklistEntry removes a worklist entry without producing an exit.
func (tx *transaction) DeleteWorklistEntry(id string) error {
	current, ok := tx.state.worklists[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityWorklist, ID: id}
	}
	delete(tx.state.worklists, id)
	tx.recordChange(Change{Entity: domain.EntityWorklist, Action: domain.ActionDelete, Before: cloneWorklist(current)})
	return nil
}

// CreateExitRecord appends a terminal disposition to the exit ledger.
func (tx *transaction) CreateExitRecord(e ExitRecord) (ExitRecord, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.exits[e.ID]; exists {
		return ExitRecord{}, fmt.Errorf("exit record %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	e.Version = 1
	tx.state.exits[e.ID] = cloneExit(e)
	tx.recordChange(Change{Entity: domain.EntityExit, Action: domain.ActionCreate, After: cloneExit(e)})
	return cloneExit(e), nil
}

// DeleteExitRecord removes an exit record. Administrative purge only; the
// lifecycle never updates or deletes the exit ledger.
func (tx *transaction) DeleteExitRecord(id string) error {
	current, ok := tx.state.exits[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityExit, ID: id}
	}
	delete(tx.state.exits, id)
	tx.recordChange(Change{Entity: domain.EntityExit, Action: domain.ActionDelete, Before: cloneExit(current)})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetAnimal retrieves an entry-ledger record by ID from committed state.
func (s *Store) GetAnimal(id string) (AnimalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.animals[id]
	if !ok {
		return AnimalRecord{}, false
	}
	return cloneAnimal(a), true
}

// ListAnimals returns all entry-ledger records from committed state.
func (s *Store) ListAnimals() []AnimalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AnimalRecord, 0, len(s.state.animals))
	for _, a := range s.state.animals {
		out = append(out, cloneAnimal(a))
	}
	return out
}

// GetWorklistEntry retrieves a worklist entry by ID from committed state.
func (s *Store) GetWorklistEntry(id string) (WorklistEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.worklists[id]
	if !ok {
		return WorklistEntry{}, false
	}
	return cloneWorklist(w), true
}

// ListWorklistEntries returns all active worklist entries from committed state.
func (s *Store) ListWorklistEntries() []WorklistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WorklistEntry, 0, len(s.state.worklists))
	for _, w := range s.state.worklists {
		out = append(out, cloneWorklist(w))
	}
	return out
}

// ListExitRecords returns the committed exit ledger.
func (s *Store) ListExitRecords() []ExitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExitRecord, 0, len(s.state.exits))
	for _, e := range s.state.exits {
		out = append(out, cloneExit(e))
	}
	return out
}

package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Exit records are append-only inside
// the lifecycle: there is no update operation, and delete exists solely for
// administrative purge.
type Transaction interface {
	Snapshot() TransactionView
	CreateAnimal(AnimalRecord) (AnimalRecord, error)
	UpdateAnimal(id string, mutator func(*AnimalRecord) error) (AnimalRecord, error)
	DeleteAnimal(id string) error
	CreateWorklistEntry(WorklistEntry) (WorklistEntry, error)
	UpdateWorklistEntry(id string, mutator func(*WorklistEntry) error) (WorklistEntry, error)
	DeleteWorklistEntry(id string) error
	CreateExitRecord(ExitRecord) (ExitRecord, error)
	DeleteExitRecord(id string) error
	FindAnimal(id string) (AnimalRecord, bool)
	FindWorklistEntry(id string) (WorklistEntry, bool)
	FindExitByKey(idempotencyKey string) (ExitRecord, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// aggregation.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetAnimal(id string) (AnimalRecord, bool)
	ListAnimals() []AnimalRecord
	GetWorklistEntry(id string) (WorklistEntry, bool)
	ListWorklistEntries() []WorklistEntry
	ListExitRecords() []ExitRecord
}

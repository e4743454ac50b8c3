package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"custodycore/internal/aggregate"
	"custodycore/internal/blob"
	"custodycore/pkg/domain"
)

// Service exposes the case-management lifecycle operations over a persistent
// store: intake on the entry ledger, routing through the disposition tracks,
// and finalization into the exit ledger.
type Service struct {
	store       domain.PersistentStore
	photos      blob.Store
	logger      *zap.Logger
	metrics     MetricsRecorder
	nowFn       func() time.Time
	maxCapacity int
}

// Option customises a Service at construction time.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches an operation metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithClock overrides the time source. Tests use a fixed clock.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithPhotoStore attaches a blob backend for animal photos.
func WithPhotoStore(store blob.Store) Option {
	return func(s *Service) {
		s.photos = store
	}
}

// WithMaxCapacity sets the configured yard capacity used by occupancy
// aggregation. Zero disables the ratio.
func WithMaxCapacity(n int) Option {
	return func(s *Service) {
		s.maxCapacity = n
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  zap.NewNop(),
		metrics: NoopMetricsRecorder{},
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, s.nowFn().Sub(start))
}

// logResult surfaces non-blocking rule violations. Blocking ones already
// failed the transaction and reach the caller as RuleViolationError.
func (s *Service) logResult(res domain.Result) {
	for _, v := range res.Violations {
		fields := []zap.Field{
			zap.String("rule", v.Rule),
			zap.String("entity", string(v.Entity)),
			zap.String("entity_id", v.EntityID),
		}
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn(v.Message, fields...)
		case domain.SeverityLog:
			s.logger.Info(v.Message, fields...)
		}
	}
}

func (s *Service) today() string {
	return s.nowFn().UTC().Format("2006-01-02")
}

// --- Entry ledger ---

// CreateAnimal records a new intake on the entry ledger. At least one
// identifying reference is required: a chip number or the requesting agency.
// The intake date defaults to today and the status to in-custody.
func (s *Service) CreateAnimal(ctx context.Context, animal AnimalRecord) (AnimalRecord, error) {
	start := s.nowFn()
	var created AnimalRecord
	err := func() error {
		animal.Chip = strings.TrimSpace(animal.Chip)
		if animal.Chip == "" && strings.TrimSpace(animal.RequestingAgency) == "" {
			return domain.ValidationError{Field: "chip", Message: "chip or requesting agency is required"}
		}
		if animal.Species == "" {
			return domain.ValidationError{Field: "species"}
		}
		if animal.IntakeDate == "" {
			animal.IntakeDate = s.today()
		}
		if animal.Status == "" {
			animal.Status = domain.AnimalStatusInCustody
		}
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateAnimal(animal)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logResult(res)
		s.logger.Info("animal intake recorded",
			zap.String("animal_id", created.ID),
			zap.String("chip", created.Chip),
			zap.String("intake_date", created.IntakeDate))
		return nil
	}()
	s.observe(ctx, "create_animal", start, err)
	return created, err
}

// UpdateAnimal applies a mutation to an entry-ledger record. When
// expectedVersion is non-nil, the update fails with ConflictError if the
// stored version differs.
func (s *Service) UpdateAnimal(ctx context.Context, id string, expectedVersion *int64, mutator func(*AnimalRecord) error) (AnimalRecord, error) {
	start := s.nowFn()
	var updated AnimalRecord
	err := func() error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			current, ok := tx.FindAnimal(id)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
			}
			if expectedVersion != nil && current.Version != *expectedVersion {
				return domain.ConflictError{
					Entity:          domain.EntityAnimal,
					ID:              id,
					ExpectedVersion: *expectedVersion,
					ActualVersion:   current.Version,
				}
			}
			var txErr error
			updated, txErr = tx.UpdateAnimal(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logResult(res)
		return nil
	}()
	s.observe(ctx, "update_animal", start, err)
	return updated, err
}

// DeleteAnimal removes an entry-ledger record. It refuses while worklist
// entries or exit records still reference the animal: history outlives intake
// mistakes, so purge referencing records first.
func (s *Service) DeleteAnimal(ctx context.Context, id string) error {
	start := s.nowFn()
	err := func() error {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindAnimal(id); !ok {
				return domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
			}
			view := tx.Snapshot()
			for _, entry := range view.ListWorklistEntries() {
				if entry.AnimalID == id {
					return domain.ReferentialIntegrityError{
						Entity: domain.EntityAnimal,
						ID:     id,
						Reason: fmt.Sprintf("worklist entry %s on %s track references it", entry.ID, entry.Track),
					}
				}
			}
			for _, exit := range view.ListExitRecords() {
				if exit.AnimalID == id {
					return domain.ReferentialIntegrityError{
						Entity: domain.EntityAnimal,
						ID:     id,
						Reason: fmt.Sprintf("exit record %s references it", exit.ID),
					}
				}
			}
			return tx.DeleteAnimal(id)
		})
		return err
	}()
	s.observe(ctx, "delete_animal", start, err)
	return err
}

// GetAnimal fetches one entry-ledger record.
func (s *Service) GetAnimal(ctx context.Context, id string) (AnimalRecord, error) {
	animal, ok := s.store.GetAnimal(id)
	if !ok {
		return AnimalRecord{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	return animal, nil
}

// ListAnimals returns the entry ledger ordered newest intake first. Records
// sharing an intake date fall back to creation time, newest first.
func (s *Service) ListAnimals(ctx context.Context) []AnimalRecord {
	animals := s.store.ListAnimals()
	sort.Slice(animals, func(i, j int) bool {
		if animals[i].IntakeDate != animals[j].IntakeDate {
			return animals[i].IntakeDate > animals[j].IntakeDate
		}
		return animals[i].CreatedAt.After(animals[j].CreatedAt)
	})
	return animals
}

// FindAnimalsByChip returns every entry-ledger record carrying the chip,
// newest intake first. Chips recur across apprehensions, so multiple hits are
// normal.
func (s *Service) FindAnimalsByChip(ctx context.Context, chip string) []AnimalRecord {
	chip = strings.TrimSpace(chip)
	if chip == "" {
		return nil
	}
	var matches []AnimalRecord
	for _, animal := range s.ListAnimals(ctx) {
		if animal.Chip == chip {
			matches = append(matches, animal)
		}
	}
	return matches
}

// Recurrence summarises prior apprehensions of a chip.
type Recurrence struct {
	Chip           string `json:"chip"`
	Count          int    `json:"count"`
	LastIntakeDate string `json:"last_intake_date,omitempty"`
	LastCaseNumber string `json:"last_case_number,omitempty"`
}

// CheckRecurrence counts entry-ledger records matching the chip, excluding
// the record identified by excludeID. Intake flows pass the freshly created
// record's ID so a first-time apprehension reports zero; an empty excludeID
// counts all matches.
func (s *Service) CheckRecurrence(ctx context.Context, chip, excludeID string) Recurrence {
	rec := Recurrence{Chip: strings.TrimSpace(chip)}
	if rec.Chip == "" {
		return rec
	}
	for _, animal := range s.FindAnimalsByChip(ctx, rec.Chip) {
		if animal.ID == excludeID {
			continue
		}
		rec.Count++
		// FindAnimalsByChip sorts newest first, so the first match wins.
		if rec.LastIntakeDate == "" {
			rec.LastIntakeDate = animal.IntakeDate
			rec.LastCaseNumber = animal.CaseNumber
		}
	}
	return rec
}

// --- Worklist tracks ---

// TrackItem pairs a worklist entry with its entry-ledger record. Animal is
// nil when the referenced record is missing; listings degrade instead of
// failing.
type TrackItem struct {
	Entry  WorklistEntry `json:"entry"`
	Animal *AnimalRecord `json:"animal,omitempty"`
}

// ListTrack returns the entries queued on one track, oldest first.
func (s *Service) ListTrack(ctx context.Context, track Track) ([]TrackItem, error) {
	if !validTrack(track) {
		return nil, domain.ValidationError{Field: "track", Message: fmt.Sprintf("unknown track %q", track)}
	}
	var items []TrackItem
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, entry := range view.ListWorklistEntries() {
			if entry.Track != track {
				continue
			}
			item := TrackItem{Entry: entry}
			if animal, ok := view.FindAnimal(entry.AnimalID); ok {
				item.Animal = &animal
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Entry.CreatedAt.Before(items[j].Entry.CreatedAt)
	})
	return items, nil
}

func validTrack(track Track) bool {
	for _, t := range domain.Tracks() {
		if t == track {
			return true
		}
	}
	return false
}

// WorklistForm carries the caller-supplied fields for queuing an animal.
type WorklistForm struct {
	AnimalID     string         `json:"animal_id"`
	Status       WorklistStatus `json:"status"`
	Observations string         `json:"observations"`
}

// AddToTrack queues an animal on a disposition track. The animal must exist,
// the status must belong to the track's allow-list, and a second active entry
// for the same animal on the same track is rejected.
func (s *Service) AddToTrack(ctx context.Context, track Track, form WorklistForm) (WorklistEntry, error) {
	start := s.nowFn()
	var created WorklistEntry
	err := func() error {
		if !validTrack(track) {
			return domain.ValidationError{Field: "track", Message: fmt.Sprintf("unknown track %q", track)}
		}
		if form.AnimalID == "" {
			return domain.ValidationError{Field: "animal_id"}
		}
		if form.Status == "" {
			form.Status = defaultStatus(track)
		}
		if !domain.ValidStatus(track, form.Status) {
			return domain.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("%q is not a valid status on the %s track", form.Status, track),
			}
		}
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindAnimal(form.AnimalID); !ok {
				return domain.NotFoundError{Entity: domain.EntityAnimal, ID: form.AnimalID}
			}
			for _, existing := range tx.Snapshot().ListWorklistEntries() {
				if existing.AnimalID == form.AnimalID && existing.Track == track {
					return domain.DuplicateActiveEntryError{AnimalID: form.AnimalID, Track: track}
				}
			}
			var txErr error
			created, txErr = tx.CreateWorklistEntry(WorklistEntry{
				Track:        track,
				AnimalID:     form.AnimalID,
				Status:       form.Status,
				Observations: form.Observations,
			})
			return txErr
		})
		if err != nil {
			return err
		}
		s.logResult(res)
		s.logger.Info("animal queued on track",
			zap.String("entry_id", created.ID),
			zap.String("animal_id", created.AnimalID),
			zap.String("track", string(track)))
		return nil
	}()
	s.observe(ctx, "add_to_track", start, err)
	return created, err
}

func defaultStatus(track Track) WorklistStatus {
	if track == domain.TrackOtherAgency {
		return domain.StatusApprehensionYard
	}
	return domain.StatusAvailable
}

// StatusUpdate carries the mutable worklist fields. Nil pointers leave the
// current value in place.
type StatusUpdate struct {
	Status            *WorklistStatus `json:"status,omitempty"`
	Observations      *string         `json:"observations,omitempty"`
	ContactMade       *bool           `json:"contact_made,omitempty"`
	DestinationAgency *string         `json:"destination_agency,omitempty"`
}

// UpdateTrackStatus mutates a worklist entry in place. The new status, when
// supplied, must belong to the entry's track.
func (s *Service) UpdateTrackStatus(ctx context.Context, entryID string, update StatusUpdate) (WorklistEntry, error) {
	start := s.nowFn()
	var updated WorklistEntry
	err := func() error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateWorklistEntry(entryID, func(entry *WorklistEntry) error {
				if update.Status != nil {
					if !domain.ValidStatus(entry.Track, *update.Status) {
						return domain.ValidationError{
							Field:   "status",
							Message: fmt.Sprintf("%q is not a valid status on the %s track", *update.Status, entry.Track),
						}
					}
					entry.Status = *update.Status
				}
				if update.Observations != nil {
					entry.Observations = *update.Observations
				}
				if update.ContactMade != nil {
					entry.ContactMade = *update.ContactMade
				}
				if update.DestinationAgency != nil {
					entry.DestinationAgency = *update.DestinationAgency
				}
				return nil
			})
			return txErr
		})
		if err != nil {
			return err
		}
		s.logResult(res)
		return nil
	}()
	s.observe(ctx, "update_track_status", start, err)
	return updated, err
}

// RemoveFromTrack withdraws an entry from its track without recording an
// exit. The animal stays in custody on the entry ledger.
func (s *Service) RemoveFromTrack(ctx context.Context, entryID string) error {
	start := s.nowFn()
	err := func() error {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindWorklistEntry(entryID); !ok {
				return domain.NotFoundError{Entity: domain.EntityWorklist, ID: entryID}
			}
			return tx.DeleteWorklistEntry(entryID)
		})
		return err
	}()
	s.observe(ctx, "remove_from_track", start, err)
	return err
}

// --- Finalization ---

// ExitForm carries the caller-supplied fields for recording a terminal
// disposition.
type ExitForm struct {
	ExitDate         string          `json:"exit_date"`
	Destination      ExitDestination `json:"destination"`
	SEIProcessNumber string          `json:"sei_process_number"`
	ReceiverName     string          `json:"receiver_name"`
	ReceiverDocument string          `json:"receiver_document"`

	AdoptionTermNumber    string `json:"adoption_term_number"`
	InfractionActNumber   string `json:"infraction_act_number"`
	ApprehensionActNumber string `json:"apprehension_act_number"`

	// IdempotencyKey lets retries converge on the first committed exit.
	// Empty means a fresh key is generated and the call is not retryable.
	IdempotencyKey string `json:"idempotency_key"`
}

func (f ExitForm) validate() error {
	if f.ExitDate == "" {
		return domain.ValidationError{Field: "exit_date"}
	}
	if _, err := time.Parse("2006-01-02", f.ExitDate); err != nil {
		return domain.ValidationError{Field: "exit_date", Message: "must be YYYY-MM-DD"}
	}
	if !domain.ValidDestination(f.Destination) {
		return domain.ValidationError{Field: "destination", Message: fmt.Sprintf("unknown destination %q", f.Destination)}
	}
	if f.Destination == domain.DestinationAdoption {
		for field, value := range map[string]string{
			"receiver_name":        f.ReceiverName,
			"receiver_document":    f.ReceiverDocument,
			"sei_process_number":   f.SEIProcessNumber,
			"adoption_term_number": f.AdoptionTermNumber,
		} {
			if strings.TrimSpace(value) == "" {
				return domain.ValidationError{Field: field, Message: "required for adoption exits"}
			}
		}
	}
	return nil
}

func exitFromForm(form ExitForm, animal AnimalRecord) ExitRecord {
	return ExitRecord{
		AnimalID:       animal.ID,
		IdempotencyKey: form.IdempotencyKey,

		Chip:      animal.Chip,
		Species:   animal.Species,
		Gender:    animal.Gender,
		CoatColor: animal.CoatColor,

		ExitDate:         form.ExitDate,
		Destination:      form.Destination,
		SEIProcessNumber: form.SEIProcessNumber,
		ReceiverName:     form.ReceiverName,
		ReceiverDocument: form.ReceiverDocument,

		AdoptionTermNumber:    form.AdoptionTermNumber,
		InfractionActNumber:   form.InfractionActNumber,
		ApprehensionActNumber: form.ApprehensionActNumber,
	}
}

// Finalize closes out a worklist entry: it writes the exit record with a
// snapshot of the animal's identifying attributes, marks the entry-ledger
// record exited, and removes the worklist entry, all in one transaction.
// Retrying with the same idempotency key returns the first committed exit
// without touching state again.
func (s *Service) Finalize(ctx context.Context, entryID string, form ExitForm) (ExitRecord, error) {
	start := s.nowFn()
	var exit ExitRecord
	err := func() error {
		if err := form.validate(); err != nil {
			return err
		}
		if form.IdempotencyKey == "" {
			form.IdempotencyKey = uuid.NewString()
		}
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if existing, ok := tx.FindExitByKey(form.IdempotencyKey); ok {
				exit = existing
				return nil
			}
			entry, ok := tx.FindWorklistEntry(entryID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityWorklist, ID: entryID}
			}
			animal, ok := tx.FindAnimal(entry.AnimalID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityAnimal, ID: entry.AnimalID}
			}
			record := exitFromForm(form, animal)
			record.WorklistID = &entry.ID
			var txErr error
			if exit, txErr = tx.CreateExitRecord(record); txErr != nil {
				return txErr
			}
			if _, txErr = tx.UpdateAnimal(animal.ID, func(a *AnimalRecord) error {
				a.Status = domain.AnimalStatusExited
				return nil
			}); txErr != nil {
				return txErr
			}
			return tx.DeleteWorklistEntry(entry.ID)
		})
		if err != nil {
			return err
		}
		s.logResult(res)
		s.logger.Info("worklist entry finalized",
			zap.String("exit_id", exit.ID),
			zap.String("animal_id", exit.AnimalID),
			zap.String("destination", string(exit.Destination)))
		return nil
	}()
	s.observe(ctx, "finalize", start, err)
	return exit, err
}

// FinalizeAnimal records a terminal disposition for an animal that is not
// queued on any track (death in the yard, theft). Any worklist entries that do
// reference the animal are closed out alongside.
func (s *Service) FinalizeAnimal(ctx context.Context, animalID string, form ExitForm) (ExitRecord, error) {
	start := s.nowFn()
	var exit ExitRecord
	err := func() error {
		if err := form.validate(); err != nil {
			return err
		}
		if form.IdempotencyKey == "" {
			form.IdempotencyKey = uuid.NewString()
		}
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if existing, ok := tx.FindExitByKey(form.IdempotencyKey); ok {
				exit = existing
				return nil
			}
			animal, ok := tx.FindAnimal(animalID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
			}
			var txErr error
			if exit, txErr = tx.CreateExitRecord(exitFromForm(form, animal)); txErr != nil {
				return txErr
			}
			if _, txErr = tx.UpdateAnimal(animal.ID, func(a *AnimalRecord) error {
				a.Status = domain.AnimalStatusExited
				return nil
			}); txErr != nil {
				return txErr
			}
			for _, entry := range tx.Snapshot().ListWorklistEntries() {
				if entry.AnimalID != animalID {
					continue
				}
				if txErr = tx.DeleteWorklistEntry(entry.ID); txErr != nil {
					return txErr
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.logResult(res)
		return nil
	}()
	s.observe(ctx, "finalize_animal", start, err)
	return exit, err
}

// FinalizeBatch finalizes several worklist entries with a shared exit form,
// one transaction per entry. Entries that fail do not roll back the ones that
// committed before them; the returned PartialBatchError names the failures so
// the caller retries only those. Per-entry idempotency keys are derived from
// the entry ID and exit date, making a full batch retry converge.
func (s *Service) FinalizeBatch(ctx context.Context, entryIDs []string, form ExitForm) ([]ExitRecord, error) {
	start := s.nowFn()
	var exits []ExitRecord
	err := func() error {
		if len(entryIDs) == 0 {
			return domain.ValidationError{Field: "entry_ids", Message: "at least one entry is required"}
		}
		if err := form.validate(); err != nil {
			return err
		}
		var failed []domain.BatchRowError
		for _, entryID := range entryIDs {
			rowForm := form
			rowForm.IdempotencyKey = fmt.Sprintf("batch-%s-%s", entryID, form.ExitDate)
			exit, err := s.Finalize(ctx, entryID, rowForm)
			if err != nil {
				failed = append(failed, domain.BatchRowError{EntryID: entryID, Err: err})
				continue
			}
			exits = append(exits, exit)
		}
		if len(failed) > 0 {
			return domain.PartialBatchError{Succeeded: len(exits), Failed: failed}
		}
		return nil
	}()
	s.observe(ctx, "finalize_batch", start, err)
	return exits, err
}

// ListExits returns the exit ledger, newest exit date first.
func (s *Service) ListExits(ctx context.Context) []ExitRecord {
	exits := s.store.ListExitRecords()
	sort.Slice(exits, func(i, j int) bool {
		if exits[i].ExitDate != exits[j].ExitDate {
			return exits[i].ExitDate > exits[j].ExitDate
		}
		return exits[i].CreatedAt.After(exits[j].CreatedAt)
	})
	return exits
}

// PurgeExit removes an exit record outright. This is an administrative
// correction path, not part of the lifecycle; the referenced animal is left
// untouched.
func (s *Service) PurgeExit(ctx context.Context, exitID string) error {
	start := s.nowFn()
	err := func() error {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteExitRecord(exitID)
		})
		if err != nil {
			return err
		}
		s.logger.Warn("exit record purged", zap.String("exit_id", exitID))
		return nil
	}()
	s.observe(ctx, "purge_exit", start, err)
	return err
}

// --- Aggregation ---

// Summary computes the dashboard aggregates from a consistent snapshot.
func (s *Service) Summary(ctx context.Context) (aggregate.Summary, error) {
	var summary aggregate.Summary
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		summary = aggregate.Summarize(view, s.maxCapacity, s.nowFn())
		return nil
	})
	return summary, err
}

// Occupancy reports the current yard occupancy status.
func (s *Service) Occupancy(ctx context.Context) (aggregate.OccupancyStatus, error) {
	active := make(map[string]bool)
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, entry := range view.ListWorklistEntries() {
			active[entry.AnimalID] = true
		}
		return nil
	})
	if err != nil {
		return aggregate.OccupancyStatus{}, err
	}
	return aggregate.Occupancy(len(active), s.maxCapacity), nil
}

// DaysInCustody reports how long an animal has been held, using its exit date
// when one is recorded.
func (s *Service) DaysInCustody(ctx context.Context, animalID string) (int, error) {
	var days int
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		animal, ok := view.FindAnimal(animalID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
		}
		exitDate := ""
		for _, exit := range view.ListExitRecords() {
			if exit.AnimalID == animalID && exit.ExitDate > exitDate {
				exitDate = exit.ExitDate
			}
		}
		days = aggregate.DaysInCustody(animal.IntakeDate, exitDate, s.nowFn())
		return nil
	})
	return days, err
}

// --- Maintenance ---

// ReconcileWorklists sweeps the tracks for entries whose lifecycle already
// ended: entries referencing a finalized worklist ID or an exited animal.
// Returns the number of entries removed. The scheduler runs this on a cron
// cadence to repair drift left by legacy imports.
func (s *Service) ReconcileWorklists(ctx context.Context) (int, error) {
	start := s.nowFn()
	removed := 0
	err := func() error {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			finalized := make(map[string]bool)
			for _, exit := range view.ListExitRecords() {
				if exit.WorklistID != nil {
					finalized[*exit.WorklistID] = true
				}
			}
			for _, entry := range view.ListWorklistEntries() {
				stale := finalized[entry.ID]
				if !stale {
					if animal, ok := view.FindAnimal(entry.AnimalID); ok && animal.Status == domain.AnimalStatusExited {
						stale = true
					}
				}
				if !stale {
					continue
				}
				if err := tx.DeleteWorklistEntry(entry.ID); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
		return err
	}()
	if err == nil && removed > 0 {
		s.logger.Info("worklist reconciliation removed stale entries", zap.Int("removed", removed))
	}
	s.observe(ctx, "reconcile_worklists", start, err)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by custodycore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityAnimal identifies an animal intake record in the entry ledger.
	EntityAnimal EntityType = "animal"
	// EntityWorklist identifies a worklist entry on one of the disposition tracks.
	EntityWorklist EntityType = "worklist_entry"
	// EntityExit identifies a terminal disposition record in the exit ledger.
	EntityExit EntityType = "exit_record"
)

// Track identifies one of the disposition work queues an animal can be
// routed through between intake and exit.
type Track string

// Disposition tracks. Each track is an independent queue; membership on one
// track does not exclude membership on another.
const (
	TrackAdoption    Track = "adoption"
	TrackRestitution Track = "restitution"
	TrackOtherAgency Track = "other_agency"
)

// Tracks lists every disposition track in stable order.
func Tracks() []Track {
	return []Track{TrackAdoption, TrackRestitution, TrackOtherAgency}
}

// Gender enumerates the recorded sex of an animal.
type Gender string

// Recorded animal genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// AnimalStatus describes the custody state of an entry-ledger record.
type AnimalStatus string

// Entry ledger statuses.
const (
	// AnimalStatusInCustody is assigned at intake.
	AnimalStatusInCustody AnimalStatus = "in_custody"
	// AnimalStatusExited marks records whose latest disposition is recorded
	// in the exit ledger. The record itself stays for recurrence history.
	AnimalStatusExited AnimalStatus = "exited"
)

// WorklistStatus is a track-scoped workflow state. No transition table is
// enforced; any member of a track's allow-list may follow any other.
type WorklistStatus string

// Worklist statuses across the three tracks. External case-workers depend on
// these labels; keep them stable.
const (
	StatusAvailable                  WorklistStatus = "available"
	StatusSelected                   WorklistStatus = "selected"
	StatusInTreatment                WorklistStatus = "in_treatment"
	StatusVeterinaryHospital         WorklistStatus = "veterinary_hospital"
	StatusVeterinaryHospitalExternal WorklistStatus = "veterinary_hospital_external"
	StatusAdopted                    WorklistStatus = "adopted"
	StatusRestituted                 WorklistStatus = "restituted"
	StatusOverdue                    WorklistStatus = "overdue"
	StatusNoExam                     WorklistStatus = "no_exam"
	StatusExperiment                 WorklistStatus = "experiment"
	StatusApprehensionYard           WorklistStatus = "apprehension_yard"
)

var trackStatuses = map[Track][]WorklistStatus{
	TrackAdoption: {
		StatusAvailable, StatusSelected, StatusInTreatment,
		StatusVeterinaryHospital, StatusVeterinaryHospitalExternal,
		StatusAdopted, StatusNoExam, StatusExperiment,
	},
	TrackRestitution: {
		StatusAvailable, StatusInTreatment, StatusVeterinaryHospital,
		StatusRestituted, StatusOverdue, StatusNoExam, StatusExperiment,
	},
	TrackOtherAgency: {
		StatusApprehensionYard, StatusVeterinaryHospital, StatusExperiment,
	},
}

// StatusesForTrack returns the allow-list of worklist statuses for a track.
func StatusesForTrack(track Track) []WorklistStatus {
	statuses := trackStatuses[track]
	out := make([]WorklistStatus, len(statuses))
	copy(out, statuses)
	return out
}

// ValidStatus reports whether status is a member of the track's allow-list.
func ValidStatus(track Track, status WorklistStatus) bool {
	for _, s := range trackStatuses[track] {
		if s == status {
			return true
		}
	}
	return false
}

// ExitDestination enumerates terminal disposition types recorded in the exit ledger.
type ExitDestination string

// Exit destination types shared by all tracks.
const (
	DestinationRestitution ExitDestination = "restitution"
	DestinationAdoption    ExitDestination = "adoption"
	DestinationEuthanasia  ExitDestination = "euthanasia"
	DestinationDeath       ExitDestination = "death"
	DestinationTheft       ExitDestination = "theft"
	// DestinationPositiveAIE marks animals testing positive for equine
	// infectious anemia, which mandates removal.
	DestinationPositiveAIE ExitDestination = "positive_aie"
	DestinationOtherAgency ExitDestination = "other_agency_restitution"
	DestinationOther       ExitDestination = "other"
)

// ValidDestination reports whether d is a recognised exit destination.
func ValidDestination(d ExitDestination) bool {
	switch d {
	case DestinationRestitution, DestinationAdoption, DestinationEuthanasia,
		DestinationDeath, DestinationTheft, DestinationPositiveAIE,
		DestinationOtherAgency, DestinationOther:
		return true
	}
	return false
}

// Base contains common fields for all domain records. Version increments on
// every update and backs the optimistic concurrency check.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// AnimalRecord is the entry-ledger record created once at intake. It is the
// single source of truth for an animal's identity and physical attributes.
// Chip is an external tag identifier and is not unique across history:
// recurrence (repeat apprehension of the same chip) is expected and detected,
// never prevented.
type AnimalRecord struct {
	Base
	Chip              string       `json:"chip"`
	Species           string       `json:"species"`
	Gender            Gender       `json:"gender"`
	CoatColor         string       `json:"coat_color"`
	BreedOrNote       string       `json:"breed_or_note"`
	OriginRegion      string       `json:"origin_region"`
	RequestingAgency  string       `json:"requesting_agency"`
	CaseNumber        string       `json:"case_number"`
	IntakeDate        string       `json:"intake_date"` // YYYY-MM-DD, parsed defensively
	IntakeTime        string       `json:"intake_time"`
	Observations      string       `json:"observations"`
	Status            AnimalStatus `json:"status"`
	PhotoReference    *string      `json:"photo_reference,omitempty"`
	Classification    *string      `json:"classification,omitempty"`
	LocationReference *string      `json:"location_reference,omitempty"`
}

// WorklistEntry queues an animal on one disposition track. AnimalID is a
// lookup key, not an owning pointer: the referenced record may be missing and
// listings must degrade gracefully.
type WorklistEntry struct {
	Base
	Track        Track          `json:"track"`
	AnimalID     string         `json:"animal_id"`
	Status       WorklistStatus `json:"status"`
	Observations string         `json:"observations"`
	// ContactMade records whether the owner has been reached (restitution track).
	ContactMade bool `json:"contact_made"`
	// DestinationAgency names the receiving agency (other-agency track).
	DestinationAgency string `json:"destination_agency"`
}

// ExitRecord is the immutable terminal disposition entry. Identifying animal
// attributes are denormalized at finalization time: later edits to the source
// AnimalRecord never retroactively alter history, and the same chip may
// legally re-enter the system afterwards.
type ExitRecord struct {
	Base
	AnimalID       string  `json:"animal_id"`
	WorklistID     *string `json:"worklist_id,omitempty"`
	IdempotencyKey string  `json:"idempotency_key"`

	// Snapshot of the animal at exit time.
	Chip      string `json:"chip"`
	Species   string `json:"species"`
	Gender    Gender `json:"gender"`
	CoatColor string `json:"coat_color"`

	ExitDate         string          `json:"exit_date"` // YYYY-MM-DD
	Destination      ExitDestination `json:"destination"`
	SEIProcessNumber string          `json:"sei_process_number"`
	ReceiverName     string          `json:"receiver_name"`
	ReceiverDocument string          `json:"receiver_document"`

	// Track-specific references.
	AdoptionTermNumber    string `json:"adoption_term_number,omitempty"`
	InfractionActNumber   string `json:"infraction_act_number,omitempty"`
	ApprehensionActNumber string `json:"apprehension_act_number,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

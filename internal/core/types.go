package core

import "custodycore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Track              = domain.Track
	Gender             = domain.Gender
	AnimalStatus       = domain.AnimalStatus
	WorklistStatus     = domain.WorklistStatus
	ExitDestination    = domain.ExitDestination
	Severity           = domain.Severity
	Base               = domain.Base
	AnimalRecord       = domain.AnimalRecord
	WorklistEntry      = domain.WorklistEntry
	ExitRecord         = domain.ExitRecord
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityAnimal   = domain.EntityAnimal
	EntityWorklist = domain.EntityWorklist
	EntityExit     = domain.EntityExit
)

const (
	TrackAdoption    = domain.TrackAdoption
	TrackRestitution = domain.TrackRestitution
	TrackOtherAgency = domain.TrackOtherAgency
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

package core

import (
	"context"
	"fmt"

	"custodycore/pkg/domain"
)

// NewTrackUniquenessRule returns the in-transaction rule enforcing at most one
// active worklist entry per (animal, track) pair. Cross-track membership is
// deliberately not restricted: an animal may sit on more than one track at a
// time, matching observed field usage.
func NewTrackUniquenessRule() domain.Rule {
	return trackUniquenessRule{}
}

type trackUniquenessRule struct{}

func (trackUniquenessRule) Name() string { return "track_uniqueness" }

func (trackUniquenessRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	seen := make(map[string]string)
	res := domain.Result{}
	for _, entry := range view.ListWorklistEntries() {
		key := entry.AnimalID + "|" + string(entry.Track)
		if firstID, dup := seen[key]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "track_uniqueness",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("animal %s queued twice on %s track (entries %s, %s)", entry.AnimalID, entry.Track, firstID, entry.ID),
				Entity:   domain.EntityWorklist,
				EntityID: entry.ID,
			})
			continue
		}
		seen[key] = entry.ID
	}
	return res, nil
}

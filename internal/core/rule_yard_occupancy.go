package core

import (
	"context"
	"fmt"

	"custodycore/internal/aggregate"
	"custodycore/pkg/domain"
)

// NewYardOccupancyRule returns an advisory rule that flags yard occupancy
// pressure at commit time. Exceeding the attention band warns, exceeding the
// critical band still warns rather than blocks: intake of a seized animal can
// never be refused, the yard just runs hot.
func NewYardOccupancyRule(maxCapacity int) domain.Rule {
	return yardOccupancyRule{maxCapacity: maxCapacity}
}

type yardOccupancyRule struct {
	maxCapacity int
}

func (yardOccupancyRule) Name() string { return "yard_occupancy" }

func (r yardOccupancyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	active := make(map[string]bool)
	for _, entry := range view.ListWorklistEntries() {
		active[entry.AnimalID] = true
	}
	occ := aggregate.Occupancy(len(active), r.maxCapacity)

	res := domain.Result{}
	if occ.Band != aggregate.BandNormal {
		severity := domain.SeverityLog
		if occ.Band == aggregate.BandCritical {
			severity = domain.SeverityWarn
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "yard_occupancy",
			Severity: severity,
			Message:  fmt.Sprintf("yard occupancy %.0f%% (%d/%d) is %s", occ.Ratio*100, len(active), r.maxCapacity, occ.Band),
			Entity:   domain.EntityWorklist,
		})
	}
	return res, nil
}

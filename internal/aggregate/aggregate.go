// Package aggregate computes derived read-only views over the entry, worklist
// and exit ledgers. It holds no state of its own: every figure is recomputed
// from a store snapshot at call time.
package aggregate

import (
	"time"

	"custodycore/pkg/domain"
)

// dateLayout is the wire format for intake and exit dates.
const dateLayout = "2006-01-02"

// Band labels an occupancy pressure level.
type Band string

// Occupancy bands.
const (
	BandNormal    Band = "normal"    // <= 70%
	BandAttention Band = "attention" // <= 90%
	BandCritical  Band = "critical"  // > 90%
)

// OccupancyStatus pairs the occupancy ratio with its pressure band.
type OccupancyStatus struct {
	Active      int     `json:"active"`
	MaxCapacity int     `json:"max_capacity"`
	Ratio       float64 `json:"ratio"`
	Band        Band    `json:"band"`
}

// Occupancy computes the occupancy ratio of active animals against a fixed
// configured capacity. A non-positive capacity yields a zero ratio in the
// normal band rather than a division error.
func Occupancy(active, maxCapacity int) OccupancyStatus {
	status := OccupancyStatus{Active: active, MaxCapacity: maxCapacity, Band: BandNormal}
	if maxCapacity <= 0 {
		return status
	}
	status.Ratio = float64(active) / float64(maxCapacity)
	switch {
	case status.Ratio > 0.9:
		status.Band = BandCritical
	case status.Ratio > 0.7:
		status.Band = BandAttention
	}
	return status
}

// parseDate parses a YYYY-MM-DD value. The false return covers empty and
// malformed input; callers treat both as "no date" by design.
func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysInCustody returns the whole days between intake and exit, clamped to
// zero. A missing exit date counts up to now; an unparseable date on either
// side yields zero rather than an error. The defensive default is deliberate:
// dashboards must render something for dirty legacy rows.
func DaysInCustody(intakeDate, exitDate string, now time.Time) int {
	intake, ok := parseDate(intakeDate)
	if !ok {
		return 0
	}
	end := now
	if exitDate != "" {
		parsed, ok := parseDate(exitDate)
		if !ok {
			return 0
		}
		end = parsed
	}
	days := int(end.Sub(intake).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Summary is the aggregated dashboard view over all three ledgers.
type Summary struct {
	TotalAnimals       int                                            `json:"total_animals"`
	ActiveInTracks     int                                            `json:"active_in_tracks"`
	Occupancy          OccupancyStatus                                `json:"occupancy"`
	TrackDepth         map[domain.Track]int                           `json:"track_depth"`
	StatusCounts       map[domain.Track]map[domain.WorklistStatus]int `json:"status_counts"`
	ExitsByDestination map[domain.ExitDestination]int                 `json:"exits_by_destination"`
	IntakesByMonth     map[string]int                                 `json:"intakes_by_month"`
	ExitsByMonth       map[string]int                                 `json:"exits_by_month"`
	IntakesByRegion    map[string]int                                 `json:"intakes_by_region"`
	IntakesByAgency    map[string]int                                 `json:"intakes_by_agency"`
	AvgDaysInCustody   float64                                        `json:"avg_days_in_custody"`
}

// Summarize scans a store view and derives the full dashboard summary.
// Unparseable dates are excluded from their month buckets but still count in
// the totals.
func Summarize(view domain.TransactionView, maxCapacity int, now time.Time) Summary {
	s := Summary{
		TrackDepth:         make(map[domain.Track]int),
		StatusCounts:       make(map[domain.Track]map[domain.WorklistStatus]int),
		ExitsByDestination: make(map[domain.ExitDestination]int),
		IntakesByMonth:     make(map[string]int),
		ExitsByMonth:       make(map[string]int),
		IntakesByRegion:    make(map[string]int),
		IntakesByAgency:    make(map[string]int),
	}
	for _, track := range domain.Tracks() {
		s.TrackDepth[track] = 0
		s.StatusCounts[track] = make(map[domain.WorklistStatus]int)
	}

	animals := view.ListAnimals()
	s.TotalAnimals = len(animals)
	byID := make(map[string]domain.AnimalRecord, len(animals))
	var daysTotal, daysCounted int
	for _, a := range animals {
		byID[a.ID] = a
		if month, ok := monthBucket(a.IntakeDate); ok {
			s.IntakesByMonth[month]++
		}
		if a.OriginRegion != "" {
			s.IntakesByRegion[a.OriginRegion]++
		}
		if a.RequestingAgency != "" {
			s.IntakesByAgency[a.RequestingAgency]++
		}
		if a.Status != domain.AnimalStatusExited {
			daysTotal += DaysInCustody(a.IntakeDate, "", now)
			daysCounted++
		}
	}

	activeAnimals := make(map[string]bool)
	for _, entry := range view.ListWorklistEntries() {
		activeAnimals[entry.AnimalID] = true
		s.TrackDepth[entry.Track]++
		s.StatusCounts[entry.Track][entry.Status]++
	}
	s.ActiveInTracks = len(activeAnimals)
	s.Occupancy = Occupancy(s.ActiveInTracks, maxCapacity)

	for _, exit := range view.ListExitRecords() {
		s.ExitsByDestination[exit.Destination]++
		if month, ok := monthBucket(exit.ExitDate); ok {
			s.ExitsByMonth[month]++
		}
		if animal, ok := byID[exit.AnimalID]; ok {
			daysTotal += DaysInCustody(animal.IntakeDate, exit.ExitDate, now)
			daysCounted++
		}
	}

	if daysCounted > 0 {
		s.AvgDaysInCustody = float64(daysTotal) / float64(daysCounted)
	}
	return s
}

func monthBucket(date string) (string, bool) {
	t, ok := parseDate(date)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

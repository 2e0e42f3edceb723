package service

import (
	"time"

	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/internal/recurrence"
)

// reconciliation classifies generated occurrences against persisted visits.
type reconciliation struct {
	toCreate       []time.Time
	alreadyPresent []time.Time
	orphaned       []models.Visit
}

// reconcileVisits partitions the occurrence dates of one schedule: dates with
// no visit row yet, dates already backed by a row, and rows whose date the
// rule no longer produces. It never mutates anything, so calling it twice on
// the same inputs yields the same classification; orphans are reported for a
// human to review, not deleted.
func reconcileVisits(occurrences []time.Time, existing []models.Visit) reconciliation {
	byDate := make(map[time.Time]struct{}, len(existing))
	for _, v := range existing {
		byDate[recurrence.DateOnly(v.VisitDate)] = struct{}{}
	}

	occurrenceSet := make(map[time.Time]struct{}, len(occurrences))
	var rec reconciliation
	for _, d := range occurrences {
		occurrenceSet[d] = struct{}{}
		if _, ok := byDate[d]; ok {
			rec.alreadyPresent = append(rec.alreadyPresent, d)
		} else {
			rec.toCreate = append(rec.toCreate, d)
		}
	}

	for _, v := range existing {
		if _, ok := occurrenceSet[recurrence.DateOnly(v.VisitDate)]; !ok {
			rec.orphaned = append(rec.orphaned, v)
		}
	}
	return rec
}

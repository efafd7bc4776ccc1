// Package aggregate derives an epic's status and time span from its subtasks.
package aggregate

import (
	"time"

	"github.com/fentz26/tracker/internal/models"
)

// Span is the derived state of an epic.
type Span struct {
	Status   models.Status
	Start    *time.Time
	End      *time.Time
	Duration time.Duration
}

// Fold computes the derived state for an epic owning subtasks. It keeps no
// state between calls; the same input always yields the same Span.
func Fold(subtasks []*models.Subtask) Span {
	span := Span{Status: foldStatus(subtasks)}
	for _, s := range subtasks {
		if s.StartTime != nil && (span.Start == nil || s.StartTime.Before(*span.Start)) {
			start := *s.StartTime
			span.Start = &start
		}
		if end := s.EndTime(); end != nil && (span.End == nil || end.After(*span.End)) {
			span.End = end
		}
		if s.Duration != nil {
			span.Duration += *s.Duration
		}
	}
	return span
}

func foldStatus(subtasks []*models.Subtask) models.Status {
	if len(subtasks) == 0 {
		return models.StatusNew
	}
	var fresh, done int
	for _, s := range subtasks {
		switch s.Status {
		case models.StatusNew:
			fresh++
		case models.StatusDone:
			done++
		}
	}
	switch {
	case fresh == len(subtasks):
		return models.StatusNew
	case done == len(subtasks):
		return models.StatusDone
	}
	return models.StatusInProgress
}

// Apply overwrites the derived fields of epic with span.
func Apply(epic *models.Epic, span Span) {
	epic.Status = span.Status
	epic.StartTime = span.Start
	epic.End = span.End
	d := span.Duration
	epic.Duration = &d
}

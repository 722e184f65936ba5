package ordering

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/store"
)

const MaxSubtaskDescriptionLength = 500

// SubtaskInput is one entry of a submitted subtask list. An entry whose ID
// matches a persisted subtask of the task updates it; any other entry creates
// a new subtask and must carry a description.
type SubtaskInput struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Description *string    `json:"description,omitempty"`
	Finished    *bool      `json:"finished,omitempty"`
}

type SubtaskChanges struct {
	Submitted []SubtaskInput
	Remove    []uuid.UUID
}

func (c SubtaskChanges) Empty() bool {
	return len(c.Submitted) == 0 && len(c.Remove) == 0
}

// NormalizeSubtaskDescription trims s and checks its length.
func NormalizeSubtaskDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: subtask description is required", models.ErrValidation)
	}
	if utf8.RuneCountInString(s) > MaxSubtaskDescriptionLength {
		return "", fmt.Errorf("%w: subtask description must be at most %d characters",
			models.ErrValidation, MaxSubtaskDescriptionLength)
	}
	return s, nil
}

type subtaskOp struct {
	existing    *models.Subtask
	description string
	finished    bool
}

// ReconcileSubtasks merges changes into the persisted subtasks of taskID and
// returns the resulting list sorted by order.
//
// Entries are matched against the subtasks as they were before the call. Ids
// in changes.Remove are deleted and win over a matching entry in
// changes.Submitted. Matched subtasks are only written when their description
// or finished flag actually changes. New subtasks are appended after the
// persisted ones in submission order. The list is re-densed whenever a
// subtask was created or removed.
//
// Every entry is validated before the first write. An unknown id in
// changes.Remove fails with models.ErrNotFound.
func ReconcileSubtasks(ctx context.Context, subtasks store.Subtasks, taskID uuid.UUID, changes SubtaskChanges, now time.Time) ([]*models.Subtask, error) {
	existing, err := subtasks.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Subtask, len(existing))
	for _, s := range existing {
		byID[s.ID] = s
	}

	removed := make(map[uuid.UUID]bool, len(changes.Remove))
	for _, id := range changes.Remove {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("subtask %s of task %s: %w", id, taskID, models.ErrNotFound)
		}
		removed[id] = true
	}

	var updates, creates []subtaskOp
	for i, in := range changes.Submitted {
		var match *models.Subtask
		if in.ID != nil {
			match = byID[*in.ID]
		}
		if match != nil {
			if removed[match.ID] {
				continue
			}
			op := subtaskOp{existing: match, description: match.Description, finished: match.Finished}
			if in.Description != nil {
				if op.description, err = NormalizeSubtaskDescription(*in.Description); err != nil {
					return nil, fmt.Errorf("subtask %d: %w", i, err)
				}
			}
			if in.Finished != nil {
				op.finished = *in.Finished
			}
			updates = append(updates, op)
			continue
		}

		if in.Description == nil {
			return nil, fmt.Errorf("subtask %d: %w: new subtask needs a description", i, models.ErrValidation)
		}
		op := subtaskOp{}
		if op.description, err = NormalizeSubtaskDescription(*in.Description); err != nil {
			return nil, fmt.Errorf("subtask %d: %w", i, err)
		}
		if in.Finished != nil {
			op.finished = *in.Finished
		}
		creates = append(creates, op)
	}

	for id := range removed {
		if err := subtasks.Delete(ctx, id); err != nil {
			return nil, err
		}
	}

	for _, op := range updates {
		s := op.existing
		if s.Description == op.description && s.Finished == op.finished {
			continue
		}
		s.Description = op.description
		s.Finished = op.finished
		s.UpdatedAt = now
		if err := subtasks.Update(ctx, s); err != nil {
			return nil, err
		}
	}

	for i, op := range creates {
		s := &models.Subtask{
			ID:          uuid.New(),
			TaskID:      taskID,
			Description: op.description,
			Finished:    op.finished,
			Order:       len(existing) + i,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := subtasks.Create(ctx, s); err != nil {
			return nil, err
		}
	}

	if len(creates) > 0 || len(removed) > 0 {
		return CompactSubtasks(ctx, subtasks, taskID)
	}
	return subtasks.ListByTask(ctx, taskID)
}

// CompactSubtasks rewrites the subtasks of taskID to 0..n-1 and returns them.
func CompactSubtasks(ctx context.Context, subtasks store.Subtasks, taskID uuid.UUID) ([]*models.Subtask, error) {
	list, err := subtasks.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for i, s := range list {
		if err := subtasks.SetOrder(ctx, s.ID, i); err != nil {
			return nil, err
		}
		s.Order = i
	}
	return list, nil
}

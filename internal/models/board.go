package models

import (
	"time"

	"github.com/google/uuid"
)

type Board struct {
	ID          uuid.UUID `json:"id"`
	AuthorID    uuid.UUID `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Column is the ordered set of tasks sharing a board and a status.
type Column struct {
	Status TaskStatus `json:"status"`
	Tasks  []*Task    `json:"tasks"`
}

// BoardView is the full board as rendered to members.
type BoardView struct {
	Board   Board       `json:"board"`
	Members []uuid.UUID `json:"members"`
	Columns []Column    `json:"columns"`
}

package models

import "time"

// Criterion — критерий оценивания. Weight задает максимально допустимый балл.
type Criterion struct {
	ID          string     `json:"id" db:"id"`
	ContestID   string     `json:"contest_id" db:"contest_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Weight      int        `json:"weight" db:"weight"`
	DueAt       *time.Time `json:"due_at,omitempty" db:"due_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

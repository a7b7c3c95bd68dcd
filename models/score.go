package models

import "time"

// Score — оценка судьи. Естественный ключ: (judge_id, contestant_id, criteria_id).
// ContestID денормализован для быстрых выборок при авторизации и подведении итогов.
type Score struct {
	JudgeID      string  `json:"judge_id" db:"judge_id"`
	ContestantID string  `json:"contestant_id" db:"contestant_id"`
	CriteriaID   string  `json:"criteria_id" db:"criteria_id"`
	ContestID    string  `json:"contest_id" db:"contest_id"`
	Value        *int    `json:"score" db:"score"`
	Comment      *string `json:"comment,omitempty" db:"comment"`

	// SubmittedAt выставляется, когда судья финализирует оценку.
	// После этого оценка для судьи неизменна (контролируется сервисным слоем).
	SubmittedAt *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

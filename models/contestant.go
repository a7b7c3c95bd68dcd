package models

import "time"

type Contestant struct {
	ID        string    `json:"id" db:"id"`
	ContestID string    `json:"contest_id" db:"contest_id"`
	Name      string    `json:"name" db:"name"`
	StageName string    `json:"stage_name" db:"stage_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

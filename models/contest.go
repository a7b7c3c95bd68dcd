package models

import "time"

// Contest представляет конкурс.
type Contest struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatorID   string    `json:"creator_id" db:"creator_id"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time `json:"ends_at" db:"ends_at"`
	Timezone    string    `json:"timezone" db:"timezone"`

	// Zed — непрозрачный токен консистентности, который relationship store
	// возвращает при записи. Хранится и передается как есть, никогда не парсится.
	Zed *string `json:"-" db:"zed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

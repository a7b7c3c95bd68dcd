package models

// Role представляет роль участника в конкурсе. Авторитетный источник ролей —
// внешний relationship store; значения соответствуют relation-ам его схемы.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleOrganizer Role = "organizer"
	RoleJudge     Role = "judge"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleOrganizer, RoleJudge:
		return true
	}
	return false
}

// ContestMember — локальная запись об участнике конкурса.
// DisplayName — денормализованный кэш для отображения; для решений об
// авторизации не используется.
type ContestMember struct {
	UserID      string `json:"user_id" db:"user_id"`
	ContestID   string `json:"contest_id" db:"contest_id"`
	DisplayName string `json:"display_name" db:"display_name"`
}

// Member — участник конкурса, каким его видит API: relationship store
// (роль) + identity provider (email) + локальный кэш (display name).
type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

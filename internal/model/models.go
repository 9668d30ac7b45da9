package model

import (
	"time"
)

type UserRole string

const (
	RoleAgent  UserRole = "agent"
	RoleRop    UserRole = "rop" // team lead, first-pass reviewer
	RoleLawyer UserRole = "lawyer"
	RoleAdmin  UserRole = "admin"
)

// ValidRole reports whether r belongs to the defined role set.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleAgent, RoleRop, RoleLawyer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ChatID       string    `json:"chat_id" gorm:"size:64;uniqueIndex;not null"`
	FullName     string    `json:"full_name" gorm:"size:255;not null"`
	DepartmentNo string    `json:"department_no" gorm:"size:64"`
	Role         UserRole  `json:"role" gorm:"size:32;not null;default:agent"`
	Active       bool      `json:"active" gorm:"default:true"`
	Approved     bool      `json:"approved" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
}

type Application struct {
	ID       uint  `json:"id" gorm:"primaryKey"`
	AgentID  *uint `json:"agent_id" gorm:"index"`
	RopID    *uint `json:"rop_id"`
	LawyerID *uint `json:"lawyer_id"`

	DealType     string  `json:"deal_type" gorm:"size:64;not null"`
	ContractNo   *string `json:"contract_no" gorm:"size:128"`
	ProtocolDate string  `json:"protocol_date" gorm:"size:32"`
	Address      string  `json:"address" gorm:"size:512"`
	ObjectType   string  `json:"object_type" gorm:"size:64"`
	HeadName     string  `json:"head_name" gorm:"size:255"`
	AgentName    string  `json:"agent_name" gorm:"size:255"`

	StorageFolder    string `json:"storage_folder" gorm:"size:512"`
	StoragePublicURL string `json:"storage_public_url" gorm:"size:512"`

	Status    string    `json:"status" gorm:"size:50;default:CREATED;index"` // see statemachine package
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Documents []Document `json:"documents,omitempty" gorm:"foreignKey:ApplicationID"`
	Tasks     []Task     `json:"tasks,omitempty" gorm:"foreignKey:ApplicationID"`
}

// QuestionnaireAnswer rows are append-only: a retry or an edit records a
// new row, the history is kept for audit.
type QuestionnaireAnswer struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ApplicationID uint      `json:"application_id" gorm:"index;not null"`
	QuestionKey   string    `json:"question_key" gorm:"size:32;not null"`
	AnswerValue   string    `json:"answer_value" gorm:"size:512;not null"`
	CreatedAt     time.Time `json:"created_at"`
}

type Document struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ApplicationID uint      `json:"application_id" gorm:"index;not null"`
	DocType       string    `json:"doc_type" gorm:"size:64;not null"` // passport, egrn, protocol, other
	FileName      string    `json:"file_name" gorm:"size:255;not null"`
	LocalPath     string    `json:"local_path" gorm:"size:512;not null"`
	RemotePath    string    `json:"remote_path" gorm:"size:512"`
	SHA256        string    `json:"sha256" gorm:"size:64"` // hex digest of the received bytes
	Meta          string    `json:"meta" gorm:"type:text"`
	UploadedAt    time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

type Task struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ApplicationID uint      `json:"application_id" gorm:"index;not null"`
	AuthorID      uint      `json:"author_id" gorm:"not null"`
	AssigneeID    *uint     `json:"assignee_id"`
	Text          string    `json:"text" gorm:"type:text;not null"`
	Status        string    `json:"status" gorm:"size:16;default:open"` // open, done
	CreatedAt     time.Time `json:"created_at"`
}

const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"
)

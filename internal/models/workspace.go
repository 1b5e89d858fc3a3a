package models

import (
	"time"

	"github.com/google/uuid"
)

type Workspace struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"` // "owner" | "member", relative to the caller
	CreatedAt time.Time `json:"created_at"`
}

type Subject struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// CoreSubject is an entry of the admin-managed subject catalog offered when
// creating a workspace. Its ID is a slug of the name.
type CoreSubject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateWorkspaceRequest struct {
	Name     string   `json:"name" validate:"required,notblank,max=50"`
	Subjects []string `json:"subjects" validate:"max=30,dive,required,notblank,max=50"`
}

type SubjectRequest struct {
	Name string `json:"name" validate:"required,notblank,max=50"`
}

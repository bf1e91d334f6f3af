package domain

import "time"

// Group is an independently access-controlled Q&A space
type Group struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	IsPrivate     bool      `json:"isPrivate"`
	PasswordHash  string    `json:"-"`
	QuestionCount int       `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateGroupRequest is the request to create a group. A non-empty password makes it private.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description,omitempty" binding:"max=500"`
	Password    string `json:"password,omitempty" binding:"omitempty,min=4,max=72"`
}

// GroupAccessRequest is the request to unlock a private group
type GroupAccessRequest struct {
	Password string `json:"password" binding:"required"`
}

// Package models defines the data models for the task service.
package models

import "time"

// User represents an account in the system. The password is stored only as
// a bcrypt hash and is never serialized.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  []byte    `json:"-"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password []byte `json:"-"`
	Age      int    `json:"age"`
}

// UserUpdate carries a partial profile update. Nil fields are left
// untouched; Password is already hashed by the caller.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password []byte
	Age      *int
}

// Task belongs to exactly one user. OwnerID is always taken from the
// authenticated caller, never from the request body.
type Task struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	OwnerID     string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewTask struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	OwnerID     string `json:"-"`
}

type TaskUpdate struct {
	Description *string
	Completed   *bool
}

// TaskFilter narrows and orders a task listing. Zero values mean
// unrestricted: nil Completed matches both states, empty SortBy keeps the
// default deterministic order, Limit/Skip <= 0 disable paging.
type TaskFilter struct {
	Completed *bool
	SortBy    string
	SortDesc  bool
	Limit     int
	Skip      int
}

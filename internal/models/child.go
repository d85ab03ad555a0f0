package models

import "time"

// Child is a minor beneficiary record owned by a parent account (hijo).
// Ownership is enforced by the backend.
type Child struct {
	ID              int64      `json:"id"`
	Nombre          string     `json:"nombre"`
	Edad            *int       `json:"edad,omitempty"`
	FechaNacimiento *time.Time `json:"fechaNacimiento,omitempty"`
	Avatar          *string    `json:"avatar,omitempty"`
	Diagnostico     *string    `json:"diagnostico,omitempty"`
}

// ChildRequest is the body for creating or updating a child.
type ChildRequest struct {
	Nombre          string     `json:"nombre"`
	Edad            *int       `json:"edad,omitempty"`
	FechaNacimiento *time.Time `json:"fechaNacimiento,omitempty"`
	Avatar          *string    `json:"avatar,omitempty"`
	Diagnostico     *string    `json:"diagnostico,omitempty"`
}

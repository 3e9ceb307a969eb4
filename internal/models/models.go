// Package models provides canonical type definitions for Inkwell API entities.
// These types are used throughout the client for API requests and responses.
package models

// Document represents an Inkwell document.
type Document struct {
	ID        string `json:"id"`
	Slug      string `json:"slug,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Version   int64  `json:"version"`
	Archived  bool   `json:"archived,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	URL       string `json:"url,omitempty"`
	AppURL    string `json:"app_url,omitempty"`
}

// DocumentSummary is the list-endpoint shape: no body, just metadata.
type DocumentSummary struct {
	ID        string `json:"id"`
	Slug      string `json:"slug,omitempty"`
	Title     string `json:"title"`
	Version   int64  `json:"version"`
	Archived  bool   `json:"archived,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// NewDocument is the request body for document creation.
type NewDocument struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

// DocumentUpdate is the request body for document updates.
// BaseVersion is the revision the edit was made against; the server
// rejects the write with 409 when the current revision is newer.
type DocumentUpdate struct {
	Title       string `json:"title,omitempty"`
	Body        string `json:"body"`
	BaseVersion int64  `json:"base_version"`
}

// Account represents the authenticated account returned by /v1/me.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Plan  string `json:"plan,omitempty"`
}

package entity

import "time"

// Template is a saved quick reply.
type Template struct {
	ID        int64     `json:"id"`
	User      *int64    `json:"user"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Hotkey    string    `json:"hotkey"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateTemplateRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Hotkey  string `json:"hotkey,omitempty"`
}

package domain

import "time"

// Category is a workflow category tickets are filed under.
type Category struct {
	ID        int64
	Name      string
	Keywords  []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KBArticle is a knowledge-base entry surfaced as a suggestion while a
// requester types out a ticket.
type KBArticle struct {
	ID        int64
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

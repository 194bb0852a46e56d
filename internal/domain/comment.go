package domain

import "time"

// Comment is a message on a ticket's communication thread.
type Comment struct {
	ID         int64
	TicketID   int64
	AuthorID   *int64
	AuthorName string
	Body       string
	Internal   bool
	CreatedAt  time.Time
}

// Feedback is a CSAT rating submitted after resolution.
type Feedback struct {
	ID        int64
	TicketID  int64
	UserID    *int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

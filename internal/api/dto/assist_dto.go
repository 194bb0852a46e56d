package dto

import "time"

// AssistTextRequest carries free text to polish or summarize.
type AssistTextRequest struct {
	Text string `json:"text"`
}

// AssistSuggestRequest asks for a reply suggestion.
type AssistSuggestRequest struct {
	Description string `json:"description"`
	Context     string `json:"context"`
}

// AssistResultResponse wraps provider output.
type AssistResultResponse struct {
	Result string `json:"result"`
}

// CategorySuggestionResponse is one categorization candidate.
type CategorySuggestionResponse struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
}

// CategoryResponse describes a ticket category.
type CategoryResponse struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// KBArticleResponse is a knowledge-base hit.
type KBArticleResponse struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// CommentResponse is one entry of a ticket's thread.
type CommentResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	AuthorID   *int64    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	Internal   bool      `json:"internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// FeedbackResponse is a stored CSAT entry.
type FeedbackResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResponse reports a stored file.
type UploadResponse struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskforge/servicedesk/internal/config"
	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// Debouncer coalesces rapid repeat calls per key. Each caller waits out the
// key's window and proceeds only if no newer call for the same key arrived in
// the meantime; superseded callers are released immediately.
type Debouncer struct {
	mu    sync.Mutex
	waits map[string]chan struct{}
}

// NewDebouncer creates an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{waits: make(map[string]chan struct{})}
}

// Hold blocks until key's window elapses and reports true. It reports false
// as soon as a newer Hold on the same key supersedes this caller, or the
// context is cancelled. A non-positive window passes through immediately.
func (d *Debouncer) Hold(ctx context.Context, key string, window time.Duration) bool {
	if window <= 0 {
		return true
	}

	d.mu.Lock()
	if prev, ok := d.waits[key]; ok {
		close(prev)
	}
	superseded := make(chan struct{})
	d.waits[key] = superseded
	d.mu.Unlock()

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
		d.mu.Lock()
		if d.waits[key] == superseded {
			delete(d.waits, key)
		}
		d.mu.Unlock()
		return true
	case <-superseded:
		return false
	case <-ctx.Done():
		return false
	}
}

// AssistService proxies text-assist calls to the upstream AI provider and
// serves the local knowledge-base and duplicate lookups that back the
// composer's live suggestions.
type AssistService struct {
	cfg        config.AssistConfig
	client     *http.Client
	tickets    repository.TicketRepository
	kb         repository.KBRepository
	categories repository.CategoryRepository
	logger     *zap.Logger
	debounce   *Debouncer
}

// AssistDependencies bundles collaborators for the assist service.
type AssistDependencies struct {
	TicketRepo   repository.TicketRepository
	KBRepo       repository.KBRepository
	CategoryRepo repository.CategoryRepository
	Logger       *zap.Logger
}

// NewAssistService constructs the service.
func NewAssistService(cfg config.AssistConfig, deps AssistDependencies) *AssistService {
	return &AssistService{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.RequestTimeout()},
		tickets:    deps.TicketRepo,
		kb:         deps.KBRepo,
		categories: deps.CategoryRepo,
		logger:     deps.Logger,
		debounce:   NewDebouncer(),
	}
}

type providerRequest struct {
	Task    string `json:"task"`
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

type providerResponse struct {
	Result string `json:"result"`
}

// Polish asks the provider to rewrite text into a professional register.
func (s *AssistService) Polish(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewValidationError("text is required", nil)
	}
	return s.callProvider(ctx, providerRequest{Task: "polish", Text: text})
}

// Summarize asks the provider for a short summary of a ticket thread.
func (s *AssistService) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewValidationError("text is required", nil)
	}
	return s.callProvider(ctx, providerRequest{Task: "summarize", Text: text})
}

// SuggestReply asks the provider for a technician guide based on the ticket
// description. Rapid repeat calls for the same description coalesce; only the
// latest one reaches the provider, superseded calls yield an empty result.
func (s *AssistService) SuggestReply(ctx context.Context, description, hint string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", apperrors.NewValidationError("description is required", nil)
	}
	if !s.debounce.Hold(ctx, "suggest:"+strings.ToLower(description), s.cfg.SuggestionDebounce) {
		return "", nil
	}
	return s.callProvider(ctx, providerRequest{Task: "suggest_reply", Text: description, Context: hint})
}

// CategorySuggestion pairs a category with a match score.
type CategorySuggestion struct {
	Category domain.Category
	Score    int
}

// Categorize matches the subject against category keywords. It is local and
// deterministic; the provider is not consulted. Keystroke-rate repeats for
// the same subject coalesce to the latest call.
func (s *AssistService) Categorize(ctx context.Context, subject string) ([]CategorySuggestion, error) {
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" || s.categories == nil {
		return nil, nil
	}
	if !s.debounce.Hold(ctx, "categorize:"+subject, s.cfg.CategorizeDebounce) {
		return nil, nil
	}
	all, err := s.categories.ListPublic(ctx)
	if err != nil {
		s.degrade("categorize", err)
		return nil, nil
	}

	var suggestions []CategorySuggestion
	for _, category := range all {
		score := 0
		for _, keyword := range category.Keywords {
			if keyword != "" && strings.Contains(subject, strings.ToLower(keyword)) {
				score++
			}
		}
		if score > 0 {
			suggestions = append(suggestions, CategorySuggestion{Category: category, Score: score})
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	return suggestions, nil
}

// SearchKB returns knowledge-base articles matching the query. Lookup
// failures degrade to an empty result so the composer keeps working.
func (s *AssistService) SearchKB(ctx context.Context, query string, limit int) ([]domain.KBArticle, error) {
	query = strings.TrimSpace(query)
	if query == "" || s.kb == nil {
		return nil, nil
	}
	if !s.debounce.Hold(ctx, "kb:"+strings.ToLower(query), s.cfg.KBSearchDebounce) {
		return nil, nil
	}
	articles, err := s.kb.Search(ctx, query, limit)
	if err != nil {
		s.degrade("kb_search", err)
		return nil, nil
	}
	return articles, nil
}

// SimilarTickets finds likely duplicates of a subject by token overlap over
// open tickets. Failures degrade to an empty result.
func (s *AssistService) SimilarTickets(ctx context.Context, subject string, limit int) ([]domain.Ticket, error) {
	terms := tokenize(subject)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	all, err := s.tickets.List(ctx)
	if err != nil {
		s.degrade("similar_tickets", err)
		return nil, nil
	}

	type scored struct {
		ticket domain.Ticket
		score  int
	}
	var candidates []scored
	for _, ticket := range all {
		if ticket.Status.IsTerminal() {
			continue
		}
		overlap := 0
		haystack := strings.ToLower(ticket.Subject)
		for term := range terms {
			if strings.Contains(haystack, term) {
				overlap++
			}
		}
		if overlap > 0 {
			candidates = append(candidates, scored{ticket: ticket, score: overlap})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	result := make([]domain.Ticket, 0, limit)
	for _, candidate := range candidates {
		result = append(result, candidate.ticket)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *AssistService) callProvider(ctx context.Context, req providerRequest) (string, error) {
	if strings.TrimSpace(s.cfg.ProviderBaseURL) == "" {
		return "", apperrors.NewUpstreamError(fmt.Errorf("assist provider not configured"))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ProviderBaseURL+"/v1/assist", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.MapError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.cfg.ProviderAPIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.cfg.ProviderAPIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", apperrors.NewUpstreamError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewUpstreamError(fmt.Errorf("assist provider returned %d", resp.StatusCode))
	}

	var parsed providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewUpstreamError(err)
	}
	return parsed.Result, nil
}

func (s *AssistService) degrade(op string, err error) {
	if s.logger != nil {
		s.logger.Warn("assist lookup degraded", zap.String("op", op), zap.Error(err))
	}
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,!?:;\"'()")
		if len(field) >= 3 {
			terms[field] = struct{}{}
		}
	}
	return terms
}

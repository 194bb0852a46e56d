package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/servicedesk/internal/auth"
	"github.com/deskforge/servicedesk/internal/config"
	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/repository"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// DirectoryService serves the reference data the ticket composer and
// assignment pickers rely on: categories, knowledge-base lookups and the
// technician roster.
type DirectoryService struct {
	categories repository.CategoryRepository
	kb         repository.KBRepository
	users      repository.UserRepository
	bcryptCost int
}

// DirectoryDependencies bundles repositories for the directory service.
type DirectoryDependencies struct {
	CategoryRepo repository.CategoryRepository
	KBRepo       repository.KBRepository
	UserRepo     repository.UserRepository
}

// NewDirectoryService constructs the service.
func NewDirectoryService(cfg config.AuthConfig, deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		categories: deps.CategoryRepo,
		kb:         deps.KBRepo,
		users:      deps.UserRepo,
		bcryptCost: cfg.BcryptCost,
	}
}

// ListCategories returns the active ticket categories.
func (s *DirectoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListPublic(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// SearchKB finds knowledge-base articles for a query.
func (s *DirectoryService) SearchKB(ctx context.Context, query string, limit int) ([]domain.KBArticle, error) {
	articles, err := s.kb.Search(ctx, query, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return articles, nil
}

// ListTechnicians returns active technicians for assignment pickers.
func (s *DirectoryService) ListTechnicians(ctx context.Context) ([]domain.User, error) {
	technicians, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return technicians, nil
}

// ProvisionInput describes an admin-created account.
type ProvisionInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.UserRole
}

// ProvisionUser lets an admin create technician or admin accounts.
func (s *DirectoryService) ProvisionUser(ctx context.Context, actor *domain.User, input ProvisionInput) (*domain.User, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	switch input.Role {
	case domain.RoleUser, domain.RoleTechnician, domain.RoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown role", nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Package admins manages console role assignments. Users themselves live in
// the delegated auth service; this package only records which of them may
// use the admin API.
package admins

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

type Service interface {
	List(ctx context.Context) ([]AdminDTO, error)
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	RemoveRole(ctx context.Context, actor Actor, userID uuid.UUID, role enums.AdminRole) error
	// RoleFor returns the strongest role held by userID, or "" when none.
	RoleFor(ctx context.Context, userID uuid.UUID) (enums.AdminRole, error)
}

type CreateInput struct {
	UserID uuid.UUID
	Email  string
	Role   enums.AdminRole
	Actor  Actor
}

// Actor is the authenticated console user making the change.
type Actor struct {
	UserID uuid.UUID
	Role   enums.AdminRole
}

type welcomeMailer interface {
	SendAdminWelcome(ctx context.Context, email string, role enums.AdminRole) (*emails.LogDTO, error)
}

type ServiceParams struct {
	Repo   *Repository
	DB     *db.Client
	Mailer welcomeMailer
	Logger *logger.Logger
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	mailer   welcomeMailer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("admin repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Mailer == nil:
		return nil, fmt.Errorf("welcome mailer required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, dbClient: params.DB, mailer: params.Mailer, logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context) ([]AdminDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list admins")
	}
	return groupByUser(rows), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	email, err := validateCreate(input)
	if err != nil {
		return nil, err
	}
	if input.Role == enums.AdminRoleOwner && input.Actor.Role != enums.AdminRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owners can grant the owner role")
	}

	var granted *models.AdminRoleAssignment
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		granted = &models.AdminRoleAssignment{
			UserID: input.UserID,
			Email:  email,
			Role:   input.Role,
		}
		if input.Actor.UserID != uuid.Nil {
			actor := input.Actor.UserID
			granted.GrantedBy = &actor
		}
		return s.repo.WithTx(tx).Create(ctx, granted)
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already holds this role")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: grant admin role")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"admin_user_id": input.UserID.String(), "admin_role": input.Role.String()})
	s.logg.Info(logCtx, "admin role granted")

	roles, err := s.repo.RolesFor(ctx, input.UserID)
	if err != nil {
		roles = []enums.AdminRole{input.Role}
	}
	result := &CreateResult{Admin: AdminDTO{
		UserID:    input.UserID,
		Email:     email,
		Roles:     sortRoles(roles),
		CreatedAt: granted.CreatedAt,
	}}

	logDTO, err := s.mailer.SendAdminWelcome(ctx, email, input.Role)
	if err != nil {
		s.logg.Warn(logCtx, "admin welcome email failed: "+err.Error())
		result.EmailError = err.Error()
	}
	result.WelcomeEmail = logDTO
	return result, nil
}

func (s *service) RemoveRole(ctx context.Context, actor Actor, userID uuid.UUID, role enums.AdminRole) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role == enums.AdminRoleOwner && actor.Role != enums.AdminRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only owners can remove the owner role")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if role == enums.AdminRoleOwner {
			owners, err := txRepo.CountRole(ctx, enums.AdminRoleOwner)
			if err != nil {
				return err
			}
			held, err := txRepo.RolesFor(ctx, userID)
			if err != nil {
				return err
			}
			if owners <= 1 && containsRole(held, enums.AdminRoleOwner) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot remove the last owner")
			}
		}
		removed, err := txRepo.DeleteRole(ctx, userID, role)
		if err != nil {
			return err
		}
		if removed == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "role assignment not found")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove admin role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"admin_user_id": userID.String(), "admin_role": role.String()}), "admin role removed")
	return nil
}

func (s *service) RoleFor(ctx context.Context, userID uuid.UUID) (enums.AdminRole, error) {
	roles, err := s.repo.RolesFor(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load admin roles")
	}
	if len(roles) == 0 {
		return "", nil
	}
	return sortRoles(roles)[0], nil
}

func validateCreate(input CreateInput) (string, error) {
	details := map[string]string{}
	if input.UserID == uuid.Nil {
		details["user_id"] = "is required"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		details["email"] = "must be a valid email address"
	}
	if !input.Role.IsValid() {
		details["role"] = "must be owner or admin"
	}
	if len(details) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid admin").WithDetails(details)
	}
	return email, nil
}

func groupByUser(rows []models.AdminRoleAssignment) []AdminDTO {
	index := map[uuid.UUID]int{}
	out := make([]AdminDTO, 0, len(rows))
	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			index[row.UserID] = len(out)
			out = append(out, AdminDTO{UserID: row.UserID, Email: row.Email, CreatedAt: row.CreatedAt})
			i = len(out) - 1
		}
		out[i].Roles = append(out[i].Roles, row.Role)
	}
	for i := range out {
		out[i].Roles = sortRoles(out[i].Roles)
	}
	return out
}

var roleRank = map[enums.AdminRole]int{
	enums.AdminRoleOwner: 0,
	enums.AdminRoleAdmin: 1,
}

// sortRoles orders strongest first.
func sortRoles(roles []enums.AdminRole) []enums.AdminRole {
	sort.SliceStable(roles, func(i, j int) bool { return roleRank[roles[i]] < roleRank[roles[j]] })
	return roles
}

func containsRole(roles []enums.AdminRole, want enums.AdminRole) bool {
	for _, role := range roles {
		if role == want {
			return true
		}
	}
	return false
}

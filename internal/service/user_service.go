package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type adminClassRepository interface {
	UnsetTeacher(ctx context.Context, teacherID string) error
	RemoveStudent(ctx context.Context, studentID string) error
}

type adminMarkRepository interface {
	DeleteByStudent(ctx context.Context, studentID string) error
}

// UserService implements admin-side user management.
type UserService struct {
	users     adminUserRepository
	classes   adminClassRepository
	marks     adminMarkRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users adminUserRepository, classes adminClassRepository, marks adminMarkRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, classes: classes, marks: marks, validator: validate, logger: logger}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions a user with any role. Student accounts require a valid
// roll number.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid role")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	user := &models.User{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Name:  strings.TrimSpace(req.Name),
		Role:  req.Role,
	}

	if req.Role == models.RoleStudent {
		if !models.ValidStudentID(req.StudentID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid Student ID format (e.g., 2023UCP1665)")
		}
		studentID := models.NormalizeStudentID(req.StudentID)
		if _, err := s.users.FindByStudentID(ctx, studentID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Student ID already registered")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
		}
		user.StudentID = &studentID
	}
	if dept := strings.TrimSpace(req.Department); dept != "" {
		user.Department = &dept
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update edits a user. Role changes are restricted to promoting students to
// teachers.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.Role != nil && *req.Role != user.Role {
		if user.Role != models.RoleStudent || *req.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Role change not allowed. Only students can be promoted to teachers.")
		}
		user.Role = models.RoleTeacher
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing.ID != id {
				return nil, appErrors.Clone(appErrors.ErrConflict, "Email already in use")
			} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
			}
			user.Email = email
		}
	}

	if req.StudentID != nil {
		if !models.ValidStudentID(*req.StudentID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid Student ID format (e.g., 2023UCP1665)")
		}
		studentID := models.NormalizeStudentID(*req.StudentID)
		if user.StudentID == nil || *user.StudentID != studentID {
			if existing, err := s.users.FindByStudentID(ctx, studentID); err == nil && existing.ID != id {
				return nil, appErrors.Clone(appErrors.ErrConflict, "Student ID already in use")
			} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
			}
			user.StudentID = &studentID
		}
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Department != nil {
		if dept := strings.TrimSpace(*req.Department); dept != "" {
			user.Department = &dept
		} else {
			user.Department = nil
		}
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Delete removes a user. Classes owned by a deleted teacher are kept and
// orphaned, a deleted student's roster entries and marks are removed.
// Self-deletion is refused.
func (s *UserService) Delete(ctx context.Context, id, requesterID string) (string, error) {
	if id == requesterID {
		return "", appErrors.Clone(appErrors.ErrValidation, "Cannot delete your own account")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	switch user.Role {
	case models.RoleTeacher:
		if err := s.classes.UnsetTeacher(ctx, user.ID); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach classes")
		}
	case models.RoleStudent:
		if err := s.classes.RemoveStudent(ctx, user.ID); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove roster entries")
		}
		if err := s.marks.DeleteByStudent(ctx, user.ID); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove marks")
		}
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.logger.Info("user deleted", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return "User deleted successfully", nil
}

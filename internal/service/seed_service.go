package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type seedUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type seedClassRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Enroll(ctx context.Context, classID, studentID string) (bool, error)
}

// SeedService provisions a demo data set for fresh installations.
type SeedService struct {
	users   seedUserRepository
	classes seedClassRepository
	logger  *zap.Logger
}

// NewSeedService constructs a SeedService instance.
func NewSeedService(users seedUserRepository, classes seedClassRepository, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{users: users, classes: classes, logger: logger}
}

// Seed creates the demo admin, teacher and student accounts plus a sample
// class with the student enrolled. Running it again is a no-op.
func (s *SeedService) Seed(ctx context.Context) (string, error) {
	if _, err := s.users.FindByEmail(ctx, "admin@example.com"); err == nil {
		return "Already seeded", nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seed state")
	}

	if _, err := s.seedUser(ctx, "admin@example.com", "admin123", "Admin User", models.RoleAdmin, "", ""); err != nil {
		return "", err
	}
	teacher, err := s.seedUser(ctx, "teacher@example.com", "teacher123", "Demo Teacher", models.RoleTeacher, "", "Computer Science")
	if err != nil {
		return "", err
	}
	student, err := s.seedUser(ctx, "student@example.com", "student123", "Demo Student", models.RoleStudent, "2023UCP0001", "Computer Science")
	if err != nil {
		return "", err
	}

	class, err := s.classes.FindByCode(ctx, "CSE101")
	if errors.Is(err, sql.ErrNoRows) {
		dept := "Computer Science"
		class = &models.Class{
			Name:       "Sample Class",
			Code:       "CSE101",
			TeacherID:  &teacher.ID,
			Department: &dept,
		}
		if err := s.classes.Create(ctx, class); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sample class")
		}
	} else if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sample class")
	}

	if _, err := s.classes.Enroll(ctx, class.ID, student.ID); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll demo student")
	}

	s.logger.Info("demo data seeded")
	return "Seeded", nil
}

func (s *SeedService) seedUser(ctx context.Context, email, password, name string, role models.UserRole, studentID, department string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash seed password")
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
	}
	if studentID != "" {
		id := models.NormalizeStudentID(studentID)
		user.StudentID = &id
	}
	if department != "" {
		dept := department
		user.Department = &dept
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create seed user")
	}
	return user, nil
}

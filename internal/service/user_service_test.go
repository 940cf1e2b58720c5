package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type mockAdminUserRepo struct {
	byID        *models.User
	byEmail     *models.User
	byStudentID *models.User
	created     *models.User
	updated     *models.User
	deleted     []string
}

func (m *mockAdminUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockAdminUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.byEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmail, nil
}

func (m *mockAdminUserRepo) FindByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	if m.byStudentID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byStudentID, nil
}

func (m *mockAdminUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	return nil, nil
}

func (m *mockAdminUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "u1"
	m.created = user
	return nil
}

func (m *mockAdminUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockAdminUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAdminClassRepo struct {
	unsetTeacher   []string
	removedStudent []string
}

func (m *mockAdminClassRepo) UnsetTeacher(ctx context.Context, teacherID string) error {
	m.unsetTeacher = append(m.unsetTeacher, teacherID)
	return nil
}

func (m *mockAdminClassRepo) RemoveStudent(ctx context.Context, studentID string) error {
	m.removedStudent = append(m.removedStudent, studentID)
	return nil
}

type mockAdminMarkRepo struct {
	deletedFor []string
}

func (m *mockAdminMarkRepo) DeleteByStudent(ctx context.Context, studentID string) error {
	m.deletedFor = append(m.deletedFor, studentID)
	return nil
}

func TestAdminCreateTeacher(t *testing.T) {
	repo := &mockAdminUserRepo{}
	svc := NewUserService(repo, &mockAdminClassRepo{}, &mockAdminMarkRepo{}, nil, nil)

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Name:     "Prof Iyer",
		Email:    "iyer@example.com",
		Password: "password",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Nil(t, user.StudentID)
}

func TestAdminCreateStudentRequiresRollNumber(t *testing.T) {
	svc := NewUserService(&mockAdminUserRepo{}, &mockAdminClassRepo{}, &mockAdminMarkRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "password",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid Student ID format (e.g., 2023UCP1665)", appErrors.FromError(err).Message)
}

func TestAdminPromoteStudentToTeacher(t *testing.T) {
	studentID := "2023UCP1665"
	repo := &mockAdminUserRepo{byID: &models.User{ID: "u1", Role: models.RoleStudent, StudentID: &studentID}}
	svc := NewUserService(repo, &mockAdminClassRepo{}, &mockAdminMarkRepo{}, nil, nil)

	teacher := models.RoleTeacher
	user, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{Role: &teacher})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)
	require.NotNil(t, repo.updated)
}

func TestAdminRoleChangeRestricted(t *testing.T) {
	repo := &mockAdminUserRepo{byID: &models.User{ID: "u1", Role: models.RoleTeacher}}
	svc := NewUserService(repo, &mockAdminClassRepo{}, &mockAdminMarkRepo{}, nil, nil)

	admin := models.RoleAdmin
	_, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{Role: &admin})
	require.Error(t, err)
	assert.Equal(t, "Role change not allowed. Only students can be promoted to teachers.", appErrors.FromError(err).Message)
}

func TestAdminUpdateEmailConflict(t *testing.T) {
	repo := &mockAdminUserRepo{
		byID:    &models.User{ID: "u1", Role: models.RoleTeacher, Email: "old@example.com"},
		byEmail: &models.User{ID: "u2", Email: "taken@example.com"},
	}
	svc := NewUserService(repo, &mockAdminClassRepo{}, &mockAdminMarkRepo{}, nil, nil)

	email := "taken@example.com"
	_, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{Email: &email})
	require.Error(t, err)
	assert.Equal(t, "Email already in use", appErrors.FromError(err).Message)
}

func TestAdminDeleteSelfRefused(t *testing.T) {
	svc := NewUserService(&mockAdminUserRepo{}, &mockAdminClassRepo{}, &mockAdminMarkRepo{}, nil, nil)

	_, err := svc.Delete(context.Background(), "me", "me")
	require.Error(t, err)
	assert.Equal(t, "Cannot delete your own account", appErrors.FromError(err).Message)
}

func TestAdminDeleteTeacherOrphansClasses(t *testing.T) {
	repo := &mockAdminUserRepo{byID: &models.User{ID: "t1", Role: models.RoleTeacher}}
	classes := &mockAdminClassRepo{}
	svc := NewUserService(repo, classes, &mockAdminMarkRepo{}, nil, nil)

	msg, err := svc.Delete(context.Background(), "t1", "admin")
	require.NoError(t, err)
	assert.Equal(t, "User deleted successfully", msg)
	assert.Equal(t, []string{"t1"}, classes.unsetTeacher)
	assert.Equal(t, []string{"t1"}, repo.deleted)
}

func TestAdminDeleteStudentCascades(t *testing.T) {
	repo := &mockAdminUserRepo{byID: &models.User{ID: "s1", Role: models.RoleStudent}}
	classes := &mockAdminClassRepo{}
	marks := &mockAdminMarkRepo{}
	svc := NewUserService(repo, classes, marks, nil, nil)

	_, err := svc.Delete(context.Background(), "s1", "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, classes.removedStudent)
	assert.Equal(t, []string{"s1"}, marks.deletedFor)
	assert.Equal(t, []string{"s1"}, repo.deleted)
}

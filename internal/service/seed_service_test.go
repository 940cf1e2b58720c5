package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/api/internal/models"
)

type mockSeedUserRepo struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (m *mockSeedUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSeedUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "u" + user.Email
	m.created = append(m.created, user)
	return nil
}

type mockSeedClassRepo struct {
	class      *models.Class
	created    *models.Class
	enrollment [][2]string
}

func (m *mockSeedClassRepo) FindByCode(ctx context.Context, code string) (*models.Class, error) {
	if m.class == nil {
		return nil, sql.ErrNoRows
	}
	return m.class, nil
}

func (m *mockSeedClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = "c1"
	m.created = class
	return nil
}

func (m *mockSeedClassRepo) Enroll(ctx context.Context, classID, studentID string) (bool, error) {
	m.enrollment = append(m.enrollment, [2]string{classID, studentID})
	return true, nil
}

func TestSeedCreatesDemoData(t *testing.T) {
	users := &mockSeedUserRepo{byEmail: map[string]*models.User{}}
	classes := &mockSeedClassRepo{}
	svc := NewSeedService(users, classes, nil)

	msg, err := svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Seeded", msg)

	require.Len(t, users.created, 3)
	assert.Equal(t, models.RoleAdmin, users.created[0].Role)
	assert.Equal(t, models.RoleTeacher, users.created[1].Role)
	assert.Equal(t, models.RoleStudent, users.created[2].Role)
	require.NotNil(t, users.created[2].StudentID)
	assert.Equal(t, "2023UCP0001", *users.created[2].StudentID)

	require.NotNil(t, classes.created)
	assert.Equal(t, "CSE101", classes.created.Code)
	require.Len(t, classes.enrollment, 1)
	assert.Equal(t, "c1", classes.enrollment[0][0])
}

func TestSeedIsIdempotent(t *testing.T) {
	users := &mockSeedUserRepo{byEmail: map[string]*models.User{
		"admin@example.com": {ID: "u1", Email: "admin@example.com", Role: models.RoleAdmin},
	}}
	classes := &mockSeedClassRepo{}
	svc := NewSeedService(users, classes, nil)

	msg, err := svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Already seeded", msg)
	assert.Empty(t, users.created)
	assert.Nil(t, classes.created)
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail     *models.User
	userByStudentID *models.User
	created         *models.User
	createErr       error
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	if m.userByStudentID == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByStudentID, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u1"
	m.created = user
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
}

func TestSignupCreatesStudent(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	res, err := svc.Signup(context.Background(), models.SignupRequest{
		Name:      "Asha Rao",
		Email:     "Asha@Example.com",
		Password:  "password",
		StudentID: "2023ucp1665",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleStudent, res.Role)
	require.NotNil(t, repo.created)
	assert.Equal(t, "asha@example.com", repo.created.Email)
	require.NotNil(t, repo.created.StudentID)
	assert.Equal(t, "2023UCP1665", *repo.created.StudentID)
	assert.NotEqual(t, "password", repo.created.PasswordHash)
}

func TestSignupRejectsBadStudentID(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name:      "Asha Rao",
		Email:     "asha@example.com",
		Password:  "password",
		StudentID: "not-a-roll-number",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "Invalid Student ID format (e.g., 2023UCP1665)", appErr.Message)
}

func TestSignupDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u0", Email: "asha@example.com"}}
	svc := newAuthService(repo)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name:      "Asha Rao",
		Email:     "asha@example.com",
		Password:  "password",
		StudentID: "2023UCP1665",
	})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", appErrors.FromError(err).Message)
}

func TestSignupDuplicateStudentID(t *testing.T) {
	repo := &mockAuthRepo{userByStudentID: &models.User{ID: "u0"}}
	svc := newAuthService(repo)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name:      "Asha Rao",
		Email:     "asha@example.com",
		Password:  "password",
		StudentID: "2023UCP1665",
	})
	require.Error(t, err)
	assert.Equal(t, "Student ID already registered", appErrors.FromError(err).Message)
}

func TestLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "user@example.com", PasswordHash: string(hash), Name: "User", Role: models.RoleTeacher}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleTeacher, res.Role)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "user@example.com", PasswordHash: string(hash)}}
	svc := newAuthService(repo)

	_, wrongPass := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "nope"})
	require.Error(t, wrongPass)

	_, unknown := newAuthService(&mockAuthRepo{}).Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	require.Error(t, unknown)

	assert.Equal(t, appErrors.FromError(wrongPass).Message, appErrors.FromError(unknown).Message)
	assert.Equal(t, "Invalid credentials", appErrors.FromError(unknown).Message)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	studentID := "2023UCP1665"
	user := &models.User{ID: "u1", Name: "User", Role: models.RoleStudent, StudentID: &studentID}
	token, err := svc.generateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	require.NotNil(t, claims.StudentID)
	assert.Equal(t, studentID, *claims.StudentID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{TokenSecret: "one"})
	verifier := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{TokenSecret: "two"})

	token, err := issuer.generateToken(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/happy-baby-style/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) (uuid.UUID, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestUserService_CreateUser_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	testUser := &user.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        "new.manager@example.com",
		PasswordHash: "somepassword",
	}
	expectedID := uuid.Must(uuid.NewV4())

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Return(expectedID, nil).
		Once()

	createdUser, err := userService.CreateUser(context.Background(), testUser)

	require.NoError(t, err)
	require.NotNil(t, createdUser)
	require.Equal(t, expectedID, createdUser.ID)

	rawPassword := "somepassword"

	err = bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte(rawPassword))
	require.NoError(t, err, "Password hash does not match raw password")
	require.NotEqual(t, rawPassword, createdUser.PasswordHash, "Password should be hashed, not raw")
	require.Equal(t, user.RoleManager, createdUser.Role)

	mockRepo.AssertExpectations(t)
}

func TestUserService_CreateUser_EmailExists(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	testUser := user.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        "duplicate@example.com",
		PasswordHash: "somepassword",
	}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Return(uuid.Nil, user.ErrEmailExists).
		Once()

	createdUser, err := userService.CreateUser(context.Background(), &testUser)
	require.Error(t, err)
	require.ErrorIs(t, err, user.ErrEmailExists)
	require.Nil(t, createdUser)
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetUserByID_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	expectedUser := user.User{
		ID:           userID,
		FirstName:    "Test",
		LastName:     "User",
		Email:        "getbyid@example.com",
		PasswordHash: "hashed_password_from_repo",
		CreatedAt:    time.Now().Add(-time.Hour),
		UpdatedAt:    time.Now(),
	}

	mockRepo.On("GetByID", mock.Anything, userID).
		Return(&expectedUser, nil).
		Once()

	foundUser, err := userService.GetUserByID(context.Background(), userID)

	require.NoError(t, err)
	require.NotNil(t, foundUser)
	diff := cmp.Diff(expectedUser, *foundUser)
	require.Empty(t, diff)
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	mockRepo.On("GetByID", mock.Anything, userID).
		Return(nil, user.ErrNotFound).
		Once()

	foundUser, err := userService.GetUserByID(context.Background(), userID)
	require.Error(t, err)
	require.ErrorIs(t, err, user.ErrNotFound)
	require.Nil(t, foundUser)
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetUserByEmail_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())
	userEmail := "getbyid@example.com"

	expectedUser := user.User{
		ID:           userID,
		FirstName:    "Test",
		LastName:     "User",
		Email:        userEmail,
		PasswordHash: "hashed_password_from_repo",
		CreatedAt:    time.Now().Add(-time.Hour),
		UpdatedAt:    time.Now(),
	}

	mockRepo.On("GetByEmail", mock.Anything, userEmail).
		Return(&expectedUser, nil).
		Once()

	foundUser, err := userService.GetUserByEmail(context.Background(), userEmail)

	require.NoError(t, err)
	require.NotNil(t, foundUser)
	diff := cmp.Diff(expectedUser, *foundUser)
	require.Empty(t, diff)
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetUserByEmail_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userEmail := "getbyid@example.com"

	mockRepo.On("GetByEmail", mock.Anything, userEmail).
		Return(nil, user.ErrNotFound).
		Once()

	foundUser, err := userService.GetUserByEmail(context.Background(), userEmail)
	require.Error(t, err)
	require.ErrorIs(t, err, user.ErrNotFound)
	require.Nil(t, foundUser)
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_Success_NoPasswordChange(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	userToUpdate := user.User{
		ID:        userID,
		FirstName: "Test_Updated",
		LastName:  "User_Updated",
		Email:     "getbyid@example.com",
	}

	mockRepo.On("Update", mock.Anything, &userToUpdate).
		Return(nil).
		Once()

	err := userService.UpdateUser(context.Background(), &userToUpdate)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_Success_WithPasswordChange(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	rawPassword := "newpassword123"
	userToUpdate := user.User{
		ID:           userID,
		FirstName:    "Test_Updated",
		LastName:     "User_Updated",
		Email:        "getbyid@example.com",
		PasswordHash: rawPassword,
	}

	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.ID == userToUpdate.ID &&
			u.PasswordHash != rawPassword &&
			u.PasswordHash != "" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(rawPassword)) == nil
	})).
		Return(nil).
		Once()

	err := userService.UpdateUser(context.Background(), &userToUpdate)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_EmptyRoleKeepsStoredRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userToUpdate := user.User{
		ID:        uuid.Must(uuid.NewV4()),
		FirstName: "Olga",
		LastName:  "Admin",
		Email:     "olga@example.com",
	}

	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.ID == userToUpdate.ID && u.Role == ""
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).Role = user.RoleAdmin
		}).
		Return(nil).
		Once()

	err := userService.UpdateUser(context.Background(), &userToUpdate)
	require.NoError(t, err)
	require.Equal(t, user.RoleAdmin, userToUpdate.Role)
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_InvalidRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	err := userService.UpdateUser(context.Background(), &user.User{
		ID:    uuid.Must(uuid.NewV4()),
		Email: "x@example.com",
		Role:  user.Role("owner"),
	})
	require.ErrorIs(t, err, user.ErrInvalidRole)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_UpdateUser_EmailExists(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	userToUpdate := user.User{
		ID:           userID,
		FirstName:    "Test",
		LastName:     "User",
		Email:        "getbyid@example.com",
		PasswordHash: "newpassword",
	}

	mockRepo.On("Update", mock.Anything, &userToUpdate).
		Return(user.ErrEmailExists).
		Once()

	err := userService.UpdateUser(context.Background(), &userToUpdate)
	require.Error(t, err)
	require.ErrorIs(t, err, user.ErrEmailExists)
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateUser_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	userToUpdate := user.User{
		ID:           userID,
		FirstName:    "Test",
		LastName:     "User",
		Email:        "getbyid@example.com",
		PasswordHash: "newpassword",
	}

	mockRepo.On("Update", mock.Anything, &userToUpdate).
		Return(user.ErrNotFound).
		Once()

	err := userService.UpdateUser(context.Background(), &userToUpdate)
	require.Error(t, err)
	require.ErrorIs(t, err, user.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUserService_DeleteUser_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	mockRepo.On("Delete", mock.Anything, userID).
		Return(nil).
		Once()

	err := userService.DeleteUser(context.Background(), userID)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUserService_DeleteUser_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	userID := uuid.Must(uuid.NewV4())

	mockRepo.On("Delete", mock.Anything, userID).
		Return(user.ErrNotFound).
		Once()

	err := userService.DeleteUser(context.Background(), userID)
	require.Error(t, err)
	require.ErrorIs(t, err, user.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUserService_CreateUser_RejectsInput(t *testing.T) {
	tests := []struct {
		name    string
		input   user.User
		wantErr error
	}{
		{name: "empty_password", input: user.User{Email: "a@example.com"}, wantErr: user.ErrEmptyPassword},
		{name: "unknown_role", input: user.User{Email: "a@example.com", PasswordHash: "secret", Role: "owner"}, wantErr: user.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			userService := user.NewService(mockRepo)

			createdUser, err := userService.CreateUser(context.Background(), &tt.input)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, createdUser)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &user.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "admin@happybaby.example",
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
	}

	tests := []struct {
		name     string
		email    string
		password string
		repoUser *user.User
		repoErr  error
		wantErr  error
	}{
		{name: "valid", email: stored.Email, password: "correct-horse", repoUser: stored},
		{name: "wrong_password", email: stored.Email, password: "battery-staple", repoUser: stored, wantErr: user.ErrInvalidCredentials},
		{name: "unknown_email", email: "ghost@example.com", password: "x", repoErr: user.ErrNotFound, wantErr: user.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			userService := user.NewService(mockRepo)

			if tt.repoErr != nil {
				mockRepo.On("GetByEmail", mock.Anything, tt.email).Return(nil, tt.repoErr).Once()
			} else {
				mockRepo.On("GetByEmail", mock.Anything, tt.email).Return(tt.repoUser, nil).Once()
			}

			got, err := userService.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.Equal(t, stored.ID, got.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

package account

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shier/usercenter/internal/types"
)

// MockAccountRepo is a mock implementation of the AccountRepo interface
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Insert(ctx context.Context, a *types.Account) (int64, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) FindByID(ctx context.Context, id int64) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByHandleAndCredential(ctx context.Context, handle, credential string) (*types.Account, error) {
	args := m.Called(ctx, handle, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepo) CountByHandle(ctx context.Context, handle string) (int64, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) CountByCode(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) Search(ctx context.Context, criteria SearchCriteria) ([]types.Account, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Account), args.Error(1)
}

func (m *MockAccountRepo) Update(ctx context.Context, id int64, params UpdateParams) (int64, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func newTestService(repo AccountRepo) (*AccountServiceImpl, *CacheSessionStore, *CredentialCodec) {
	sessions := NewCacheSessionStore(time.Minute)
	codec := NewCredentialCodec("test-salt")
	service := NewAccountService(repo, sessions, codec, slog.Default())
	return service, sessions, codec
}

// loginAs plants a login state directly in the session store.
func loginAs(sessions *CacheSessionStore, sessionID string, state *types.SafeAccount) {
	sessions.Set(sessionID, loginStateKey, state)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, codec := newTestService(mockRepo)

		mockRepo.On("CountByHandle", ctx, "alice123").Return(int64(0), nil).Once()
		mockRepo.On("CountByCode", ctx, "A-001").Return(int64(0), nil).Once()
		mockRepo.On("Insert", ctx, mock.MatchedBy(func(a *types.Account) bool {
			return a.Handle == "alice123" &&
				a.Password == codec.Encode("password123") &&
				a.Role == types.RoleUser &&
				a.Status == types.StatusNormal
		})).Return(int64(1), nil).Once()

		id, err := service.Register(ctx, "alice123", "password123", "password123", "A-001")

		assert.NoError(t, err)
		assert.Equal(t, int64(1), id)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidInputSkipsRepo", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		id, err := service.Register(ctx, "alice123", "password123", "different123", "A-001")

		assert.ErrorIs(t, err, types.ErrInvalidParams)
		assert.Zero(t, id)
		mockRepo.AssertNotCalled(t, "Insert")
	})

	t.Run("DuplicateHandle", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		mockRepo.On("CountByHandle", ctx, "alice123").Return(int64(1), nil).Once()

		_, err := service.Register(ctx, "alice123", "password123", "password123", "A-001")

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertNotCalled(t, "Insert")
		mockRepo.AssertExpectations(t)
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		mockRepo.On("CountByHandle", ctx, "alice123").Return(int64(0), nil).Once()
		mockRepo.On("CountByCode", ctx, "A-001").Return(int64(1), nil).Once()

		_, err := service.Register(ctx, "alice123", "password123", "password123", "A-001")

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertNotCalled(t, "Insert")
		mockRepo.AssertExpectations(t)
	})

	t.Run("InsertRace", func(t *testing.T) {
		// The store constraint may still reject the insert after the
		// existence checks pass; the conflict must surface unchanged.
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		mockRepo.On("CountByHandle", ctx, "alice123").Return(int64(0), nil).Once()
		mockRepo.On("CountByCode", ctx, "A-001").Return(int64(0), nil).Once()
		mockRepo.On("Insert", ctx, mock.Anything).Return(int64(0), types.ErrConflict).Once()

		_, err := service.Register(ctx, "alice123", "password123", "password123", "A-001")

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestServiceLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)

		stored := &types.Account{
			ID:       42,
			Handle:   "alice123",
			Password: codec.Encode("password123"),
			Role:     types.RoleUser,
		}
		mockRepo.On("FindByHandleAndCredential", ctx, "alice123", codec.Encode("password123")).
			Return(stored, nil).Once()

		safe, err := service.Login(ctx, "alice123", "password123", "sess-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(42), safe.ID)

		// Login state lands in the session, desensitized.
		v, ok := sessions.Get("sess-1", loginStateKey)
		assert.True(t, ok)
		assert.Equal(t, safe, v.(*types.SafeAccount))
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongCredential", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)

		mockRepo.On("FindByHandleAndCredential", ctx, "alice123", codec.Encode("wrongpass123")).
			Return(nil, types.ErrNotFound).Once()

		safe, err := service.Login(ctx, "alice123", "wrongpass123", "sess-1")

		assert.Nil(t, safe)
		assert.ErrorIs(t, err, types.ErrInvalidCredential)
		_, ok := sessions.Get("sess-1", loginStateKey)
		assert.False(t, ok)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UnknownHandleFailsIdentically", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, codec := newTestService(mockRepo)

		mockRepo.On("FindByHandleAndCredential", ctx, "nobody99", codec.Encode("password123")).
			Return(nil, types.ErrNotFound).Once()

		_, err := service.Login(ctx, "nobody99", "password123", "sess-1")

		assert.ErrorIs(t, err, types.ErrInvalidCredential)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidInputSkipsRepo", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		_, err := service.Login(ctx, "ab", "password123", "sess-1")

		assert.ErrorIs(t, err, types.ErrInvalidParams)
		mockRepo.AssertNotCalled(t, "FindByHandleAndCredential")
	})
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42, Handle: "alice123"})
		// The fresh read reflects changes made since login.
		mockRepo.On("FindByID", ctx, int64(42)).Return(&types.Account{
			ID:       42,
			Handle:   "alice123",
			Password: "encoded",
			Status:   types.StatusBanned,
		}, nil).Once()

		safe, err := service.CurrentUser(ctx, "sess-1")

		assert.NoError(t, err)
		assert.Equal(t, types.StatusBanned, safe.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NoSession", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		safe, err := service.CurrentUser(ctx, "missing")

		assert.Nil(t, safe)
		assert.ErrorIs(t, err, types.ErrNotAuthenticated)
		mockRepo.AssertNotCalled(t, "FindByID")
	})

	t.Run("AccountGone", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42})
		mockRepo.On("FindByID", ctx, int64(42)).Return(nil, types.ErrNotFound).Once()

		_, err := service.CurrentUser(ctx, "sess-1")

		assert.ErrorIs(t, err, types.ErrNotAuthenticated)
		mockRepo.AssertExpectations(t)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAccountRepo)
	service, sessions, _ := newTestService(mockRepo)

	loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42})

	assert.NoError(t, service.Logout(ctx, "sess-1"))
	_, ok := sessions.Get("sess-1", loginStateKey)
	assert.False(t, ok)

	// Logging out again, or without a session at all, still succeeds.
	assert.NoError(t, service.Logout(ctx, "sess-1"))
	assert.NoError(t, service.Logout(ctx, "never-existed"))
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42, Handle: "alice123"})
		mockRepo.On("FindByHandleAndCredential", ctx, "alice123", codec.Encode("oldpass123")).
			Return(&types.Account{ID: 42, Handle: "alice123", Password: codec.Encode("oldpass123")}, nil).Once()
		newEncoded := codec.Encode("newpass123")
		mockRepo.On("Update", ctx, int64(42), UpdateParams{Password: &newEncoded}).
			Return(int64(1), nil).Once()

		ok, err := service.UpdatePassword(ctx, "sess-1", "oldpass123", "newpass123")

		assert.NoError(t, err)
		assert.True(t, ok)
		mockRepo.AssertExpectations(t)
	})

	t.Run("OldPasswordMismatch", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42, Handle: "alice123"})
		mockRepo.On("FindByHandleAndCredential", ctx, "alice123", codec.Encode("wrongold123")).
			Return(nil, types.ErrNotFound).Once()

		ok, err := service.UpdatePassword(ctx, "sess-1", "wrongold123", "newpass123")

		assert.False(t, ok)
		assert.ErrorIs(t, err, types.ErrInvalidCredential)
		mockRepo.AssertNotCalled(t, "Update")
		mockRepo.AssertExpectations(t)
	})

	t.Run("SamePasswordRejected", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42, Handle: "alice123"})
		mockRepo.On("FindByHandleAndCredential", ctx, "alice123", codec.Encode("samepass123")).
			Return(&types.Account{ID: 42, Handle: "alice123", Password: codec.Encode("samepass123")}, nil).Once()

		ok, err := service.UpdatePassword(ctx, "sess-1", "samepass123", "samepass123")

		assert.False(t, ok)
		assert.ErrorIs(t, err, types.ErrInvalidParams)
		mockRepo.AssertNotCalled(t, "Update")
	})

	t.Run("BlankInput", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42, Handle: "alice123"})

		_, err := service.UpdatePassword(ctx, "sess-1", "", "newpass123")
		assert.ErrorIs(t, err, types.ErrInvalidParams)
	})

	t.Run("NotLoggedIn", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		_, err := service.UpdatePassword(ctx, "missing", "oldpass123", "newpass123")
		assert.ErrorIs(t, err, types.ErrNotAuthenticated)
	})
}

func TestUpdateOwn(t *testing.T) {
	ctx := context.Background()

	t.Run("TargetsSessionAccountOnly", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)

		loginAs(sessions, "sess-1", &types.SafeAccount{ID: 42, Handle: "alice123"})
		username := "Alice"
		mockRepo.On("Update", ctx, int64(42), UpdateParams{Username: &username}).
			Return(int64(1), nil).Once()

		ok, err := service.UpdateOwn(ctx, "sess-1", UpdateOwnParams{Username: &username})

		assert.NoError(t, err)
		assert.True(t, ok)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NotLoggedIn", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, _, _ := newTestService(mockRepo)

		_, err := service.UpdateOwn(ctx, "missing", UpdateOwnParams{})
		assert.ErrorIs(t, err, types.ErrNotAuthenticated)
		mockRepo.AssertNotCalled(t, "Update")
	})
}

func TestAdminGuard(t *testing.T) {
	ctx := context.Background()
	status := types.StatusNormal

	// A missing session and a non-admin session must fail identically.
	states := map[string]*types.SafeAccount{
		"NoSession": nil,
		"NonAdmin":  {ID: 7, Handle: "bob12345", Role: types.RoleUser},
	}

	for name, state := range states {
		t.Run(name, func(t *testing.T) {
			mockRepo := new(MockAccountRepo)
			service, sessions, _ := newTestService(mockRepo)
			if state != nil {
				loginAs(sessions, "sess-1", state)
			}

			_, err := service.Search(ctx, "sess-1", SearchCriteria{})
			assert.ErrorIs(t, err, types.ErrNoPermission)

			_, err = service.Add(ctx, "sess-1", AddParams{
				Handle: "carol123", Password: "password123", Role: types.RoleUser, Status: &status,
			})
			assert.ErrorIs(t, err, types.ErrNoPermission)

			_, err = service.Update(ctx, "sess-1", 9, UpdateParams{})
			assert.ErrorIs(t, err, types.ErrNoPermission)

			_, err = service.Delete(ctx, "sess-1", 9)
			assert.ErrorIs(t, err, types.ErrNoPermission)

			mockRepo.AssertNotCalled(t, "Search")
			mockRepo.AssertNotCalled(t, "Insert")
			mockRepo.AssertNotCalled(t, "Update")
			mockRepo.AssertNotCalled(t, "SoftDelete")
		})
	}
}

func TestAdminSearch(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAccountRepo)
	service, sessions, _ := newTestService(mockRepo)

	loginAs(sessions, "admin-sess", &types.SafeAccount{ID: 1, Handle: "root1234", Role: types.RoleAdmin})

	criteria := SearchCriteria{Username: "ali"}
	mockRepo.On("Search", ctx, criteria).Return([]types.Account{
		{ID: 42, Handle: "alice123", Password: "encoded-secret"},
		{ID: 43, Handle: "alina456", Password: "encoded-secret"},
	}, nil).Once()

	results, err := service.Search(ctx, "admin-sess", criteria)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int64(42), results[0].ID)
	assert.Equal(t, "alice123", results[0].Handle)
	assert.Equal(t, int64(43), results[1].ID)
	mockRepo.AssertExpectations(t)
}

func TestAdminAdd(t *testing.T) {
	ctx := context.Background()
	admin := &types.SafeAccount{ID: 1, Handle: "root1234", Role: types.RoleAdmin}
	status := types.StatusNormal

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		mockRepo.On("CountByHandle", ctx, "carol123").Return(int64(0), nil).Once()
		mockRepo.On("Insert", ctx, mock.MatchedBy(func(a *types.Account) bool {
			return a.Handle == "carol123" &&
				a.Password == codec.Encode("pw") &&
				a.Role == types.RoleAdmin &&
				a.Status == types.StatusNormal
		})).Return(int64(9), nil).Once()

		// Admin add bypasses the self-service length rules; only the
		// required-field and forbidden-character checks apply.
		id, err := service.Add(ctx, "admin-sess", AddParams{
			Handle: "carol123", Password: "pw", Role: types.RoleAdmin, Status: &status,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(9), id)
		mockRepo.AssertExpectations(t)
	})

	t.Run("MissingStatus", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		_, err := service.Add(ctx, "admin-sess", AddParams{
			Handle: "carol123", Password: "password123", Role: types.RoleUser,
		})

		assert.ErrorIs(t, err, types.ErrInvalidParams)
		mockRepo.AssertNotCalled(t, "Insert")
	})

	t.Run("ForbiddenHandle", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		_, err := service.Add(ctx, "admin-sess", AddParams{
			Handle: "carol!23", Password: "password123", Role: types.RoleUser, Status: &status,
		})

		assert.ErrorIs(t, err, types.ErrInvalidParams)
		mockRepo.AssertNotCalled(t, "Insert")
	})

	t.Run("DuplicateHandle", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		mockRepo.On("CountByHandle", ctx, "carol123").Return(int64(1), nil).Once()

		_, err := service.Add(ctx, "admin-sess", AddParams{
			Handle: "carol123", Password: "password123", Role: types.RoleUser, Status: &status,
		})

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertNotCalled(t, "Insert")
	})
}

func TestAdminUpdate(t *testing.T) {
	ctx := context.Background()
	admin := &types.SafeAccount{ID: 1, Handle: "root1234", Role: types.RoleAdmin}

	t.Run("EncodesSuppliedPassword", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, codec := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		plaintext := "resetpass123"
		encoded := codec.Encode(plaintext)
		mockRepo.On("Update", ctx, int64(42), UpdateParams{Password: &encoded}).
			Return(int64(1), nil).Once()

		ok, err := service.Update(ctx, "admin-sess", 42, UpdateParams{Password: &plaintext})

		assert.NoError(t, err)
		assert.True(t, ok)
		mockRepo.AssertExpectations(t)
	})

	t.Run("MissingID", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		_, err := service.Update(ctx, "admin-sess", 0, UpdateParams{})

		assert.ErrorIs(t, err, types.ErrInvalidParams)
		mockRepo.AssertNotCalled(t, "Update")
	})

	t.Run("NoRowsAffected", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		username := "ghost"
		mockRepo.On("Update", ctx, int64(404), UpdateParams{Username: &username}).
			Return(int64(0), nil).Once()

		ok, err := service.Update(ctx, "admin-sess", 404, UpdateParams{Username: &username})

		assert.False(t, ok)
		assert.ErrorIs(t, err, types.ErrOperationFailed)
		mockRepo.AssertExpectations(t)
	})
}

func TestAdminDelete(t *testing.T) {
	ctx := context.Background()
	admin := &types.SafeAccount{ID: 1, Handle: "root1234", Role: types.RoleAdmin}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		mockRepo.On("SoftDelete", ctx, int64(42)).Return(true, nil).Once()

		ok, err := service.Delete(ctx, "admin-sess", 42)

		assert.NoError(t, err)
		assert.True(t, ok)
		mockRepo.AssertExpectations(t)
	})

	t.Run("AlreadyGone", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		mockRepo.On("SoftDelete", ctx, int64(42)).Return(false, nil).Once()

		ok, err := service.Delete(ctx, "admin-sess", 42)

		assert.False(t, ok)
		assert.ErrorIs(t, err, types.ErrOperationFailed)
		mockRepo.AssertExpectations(t)
	})

	t.Run("MissingID", func(t *testing.T) {
		mockRepo := new(MockAccountRepo)
		service, sessions, _ := newTestService(mockRepo)
		loginAs(sessions, "admin-sess", admin)

		_, err := service.Delete(ctx, "admin-sess", 0)

		assert.ErrorIs(t, err, types.ErrInvalidParams)
		mockRepo.AssertNotCalled(t, "SoftDelete")
	})
}

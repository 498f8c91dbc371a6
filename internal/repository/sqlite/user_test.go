package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/authhub/internal/apperror"
	"github.com/sakif/authhub/internal/model"
)

// newTestDB returns a fresh in-memory database. Each test gets its own, so
// tests can run in parallel without sharing state.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strptr(s string) *string { return &s }

// createTestUser creates a user with an explicit role and fails the test if
// it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:           email,
		Name:            "Test User",
		ProfileImageURL: "/user.png",
		Role:            model.RoleUser,
		PasswordHash:    strptr("$2a$04$fakehashfortesting"),
	}
	if err := db.Create(context.Background(), user, model.RoleUser); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:           "alice@example.com",
		Name:            "Alice",
		ProfileImageURL: "/user.png",
		Role:            model.RolePending,
		PasswordHash:    strptr("$2a$04$fakehashfortesting"),
	}

	if err := db.Create(context.Background(), user, model.RolePending); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Create fills these in-place.
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("Create() did not set user.UpdatedAt")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@example.com")

	duplicate := &model.User{
		Email:        "alice@example.com",
		Name:         "Other Alice",
		Role:         model.RoleUser,
		PasswordHash: strptr("$2a$04$fakehashfortesting"),
	}
	err := db.Create(context.Background(), duplicate, model.RoleUser)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestCreate_FirstAccountBecomesAdmin(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{Email: "first@example.com", Name: "First"}
	if err := db.Create(context.Background(), first, model.RolePending); err != nil {
		t.Fatalf("Create(first) error = %v", err)
	}
	if first.Role != model.RoleAdmin {
		t.Errorf("first Role = %q, want %q", first.Role, model.RoleAdmin)
	}

	second := &model.User{Email: "second@example.com", Name: "Second"}
	if err := db.Create(context.Background(), second, model.RolePending); err != nil {
		t.Fatalf("Create(second) error = %v", err)
	}
	if second.Role != model.RolePending {
		t.Errorf("second Role = %q, want fallback %q", second.Role, model.RolePending)
	}
}

func TestCreate_ExplicitRoleWins(t *testing.T) {
	db := newTestDB(t)

	// Even against an empty store, an explicit role is taken verbatim.
	user := &model.User{Email: "bob@example.com", Name: "Bob", Role: model.RolePending}
	if err := db.Create(context.Background(), user, model.RoleUser); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.Role != model.RolePending {
		t.Errorf("Role = %q, want explicit %q", user.Role, model.RolePending)
	}
}

func TestCreate_NilPasswordHash(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "jit@example.com", Name: "jit", Role: model.RoleUser}
	if err := db.Create(context.Background(), user, model.RoleUser); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PasswordHash != nil {
		t.Errorf("PasswordHash = %v, want nil for a delegated account", *got.PasswordHash)
	}
}

// =========================================================================
// CREATE-IF-ABSENT TESTS
// =========================================================================

func TestCreateIfAbsent_InsertsWhenMissing(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "alice@example.com", Name: "alice", Role: model.RoleUser}
	got, err := db.CreateIfAbsent(context.Background(), user, model.RoleUser)
	if err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if got.ID == "" {
		t.Error("CreateIfAbsent() did not assign an ID")
	}
}

func TestCreateIfAbsent_ReturnsExistingRow(t *testing.T) {
	db := newTestDB(t)
	existing := createTestUser(t, db, "alice@example.com")

	attempt := &model.User{Email: "alice@example.com", Name: "loser", Role: model.RoleUser}
	got, err := db.CreateIfAbsent(context.Background(), attempt, model.RoleUser)
	if err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if got.ID != existing.ID {
		t.Errorf("ID = %q, want existing %q", got.ID, existing.ID)
	}
	if got.Name != "Test User" {
		t.Errorf("Name = %q, want the winner's %q", got.Name, "Test User")
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	got, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.APIKey != nil {
		t.Errorf("APIKey = %v, want nil for a fresh user", *got.APIKey)
	}
	if got.PasswordHash == nil || *got.PasswordHash != "$2a$04$fakehashfortesting" {
		t.Errorf("PasswordHash = %v, want the stored hash", got.PasswordHash)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	got, err := db.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
}

func TestGetFirstUser(t *testing.T) {
	db := newTestDB(t)
	first := createTestUser(t, db, "first@example.com")
	createTestUser(t, db, "second@example.com")

	got, err := db.GetFirstUser(context.Background())
	if err != nil {
		t.Fatalf("GetFirstUser() error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("GetFirstUser() ID = %q, want %q", got.ID, first.ID)
	}
}

func TestGetFirstUser_EmptyTable(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetFirstUser(context.Background())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetFirstUser() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	err := db.UpdateProfile(context.Background(), created.ID, "New Name", "/avatar.png")
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("Name = %q, want %q", got.Name, "New Name")
	}
	if got.ProfileImageURL != "/avatar.png" {
		t.Errorf("ProfileImageURL = %q, want %q", got.ProfileImageURL, "/avatar.png")
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateProfile(context.Background(), "missing", "Name", "/user.png")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	err := db.UpdatePasswordHash(context.Background(), created.ID, "$2a$04$newhash")
	if err != nil {
		t.Fatalf("UpdatePasswordHash() error = %v", err)
	}

	got, _ := db.GetByID(context.Background(), created.ID)
	if got.PasswordHash == nil || *got.PasswordHash != "$2a$04$newhash" {
		t.Errorf("PasswordHash = %v, want the new hash", got.PasswordHash)
	}
}

// =========================================================================
// API KEY TESTS
// =========================================================================

func TestAPIKeyLifecycle(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	// No key yet.
	key, err := db.GetAPIKey(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "" {
		t.Errorf("GetAPIKey() = %q, want empty before any key is set", key)
	}

	// Set and read back.
	if err := db.SetAPIKey(context.Background(), created.ID, "sk-testkey"); err != nil {
		t.Fatalf("SetAPIKey() error = %v", err)
	}
	key, err = db.GetAPIKey(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "sk-testkey" {
		t.Errorf("GetAPIKey() = %q, want %q", key, "sk-testkey")
	}

	// Lookup by key.
	got, err := db.GetByAPIKey(context.Background(), "sk-testkey")
	if err != nil {
		t.Fatalf("GetByAPIKey() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByAPIKey() ID = %q, want %q", got.ID, created.ID)
	}

	// Clear.
	if err := db.SetAPIKey(context.Background(), created.ID, ""); err != nil {
		t.Fatalf("SetAPIKey(clear) error = %v", err)
	}
	key, _ = db.GetAPIKey(context.Background(), created.ID)
	if key != "" {
		t.Errorf("GetAPIKey() = %q, want empty after clearing", key)
	}
}

func TestGetByAPIKey_NotFound(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@example.com")

	_, err := db.GetByAPIKey(context.Background(), "sk-missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByAPIKey() error = %v, want ErrNotFound", err)
	}
}

func TestClearedAPIKeysDoNotCollide(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	// Both cleared: the UNIQUE index must treat NULLs as distinct.
	if err := db.SetAPIKey(context.Background(), alice.ID, ""); err != nil {
		t.Fatalf("SetAPIKey(alice, clear) error = %v", err)
	}
	if err := db.SetAPIKey(context.Background(), bob.ID, ""); err != nil {
		t.Fatalf("SetAPIKey(bob, clear) error = %v", err)
	}
}

package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/dealflowbot/backend/config"
	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Application{},
		&model.QuestionnaireAnswer{},
		&model.Document{},
		&model.Task{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{Dir: dir, StagingDir: dir},
	}
}

func createUser(t *testing.T, users repository.UserRepository, chatID string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		ChatID:   chatID,
		FullName: "Тестовый " + string(role),
		Role:     role,
		Active:   true,
		Approved: true,
	}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// fakeStore records calls and can be set to fail uploads.
type fakeStore struct {
	folders    []string
	uploads    []string
	failUpload bool
}

func (f *fakeStore) CreateFolder(ctx context.Context, name string) (string, error) {
	folder := "deals/" + name
	f.folders = append(f.folders, folder)
	return folder, nil
}

func (f *fakeStore) Upload(ctx context.Context, folder, localPath, remoteName string) error {
	if f.failUpload {
		return context.DeadlineExceeded
	}
	f.uploads = append(f.uploads, folder+"/"+remoteName)
	return nil
}

func (f *fakeStore) Publish(ctx context.Context, folder string) (string, error) {
	return "http://store.local/" + folder, nil
}

package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/dealflowbot/backend/internal/model"
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
	// One connection keeps the in-memory database shared across goroutines.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

func createApp(t *testing.T, repo ApplicationRepository, status string) *model.Application {
	t.Helper()
	app := &model.Application{
		DealType: "Покупка",
		Address:  "ул. Ленина, 1",
		Status:   status,
	}
	if err := repo.Create(app); err != nil {
		t.Fatalf("failed to create application: %v", err)
	}
	return app
}

func TestUpdateStatusMovesApplication(t *testing.T) {
	repo := NewApplicationRepository(newTestDB(t))
	app := createApp(t, repo, "CREATED")

	ropID := uint(7)
	updated, err := repo.UpdateStatus(app.ID, "CREATED", "TO_LAWYER",
		func(a *model.Application) { a.RopID = &ropID })
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != "TO_LAWYER" {
		t.Fatalf("expected TO_LAWYER, got %s", updated.Status)
	}
	if updated.RopID == nil || *updated.RopID != ropID {
		t.Fatal("mutate callback was not applied")
	}

	stored, err := repo.Get(app.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != "TO_LAWYER" {
		t.Fatalf("status not persisted, got %s", stored.Status)
	}
}

func TestUpdateStatusConflictWhenStatusChanged(t *testing.T) {
	repo := NewApplicationRepository(newTestDB(t))
	app := createApp(t, repo, "CREATED")

	// First reviewer wins.
	if _, err := repo.UpdateStatus(app.ID, "CREATED", "TO_LAWYER", nil); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	// Second reviewer raced on the same CREATED snapshot and must lose.
	_, err := repo.UpdateStatus(app.ID, "CREATED", "RETURNED_ROP", nil)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	stored, _ := repo.Get(app.ID)
	if stored.Status != "TO_LAWYER" {
		t.Fatalf("losing transition must not overwrite, got %s", stored.Status)
	}
}

func TestUpdateStatusConcurrentTransitionsHaveOneWinner(t *testing.T) {
	repo := NewApplicationRepository(newTestDB(t))
	app := createApp(t, repo, "CREATED")

	// Two racing reviewers fire competing transitions from the same
	// CREATED snapshot; the guard must let exactly one through.
	targets := []string{"TO_LAWYER", "RETURNED_ROP"}
	results := make(chan error, len(targets))
	var wg sync.WaitGroup
	for _, to := range targets {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			_, err := repo.UpdateStatus(app.ID, "CREATED", to, nil)
			results <- err
		}(to)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrStatusConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d conflicts", wins, conflicts)
	}

	stored, err := repo.Get(app.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != "TO_LAWYER" && stored.Status != "RETURNED_ROP" {
		t.Fatalf("unexpected final status: %s", stored.Status)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo := NewApplicationRepository(newTestDB(t))
	_, err := repo.UpdateStatus(999, "CREATED", "TO_LAWYER", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByStatusAndAgent(t *testing.T) {
	db := newTestDB(t)
	repo := NewApplicationRepository(db)

	agentID := uint(1)
	first := &model.Application{AgentID: &agentID, DealType: "Покупка", Status: "CREATED"}
	second := &model.Application{AgentID: &agentID, DealType: "Продажа", Status: "CLOSED"}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(second); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	created, err := repo.ListByStatus("CREATED")
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(created) != 1 || created[0].ID != first.ID {
		t.Fatalf("unexpected ListByStatus result: %+v", created)
	}

	mine, err := repo.ListByAgent(agentID)
	if err != nil {
		t.Fatalf("ListByAgent failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(mine))
	}
}

func TestUserRepositoryChatIDLookup(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	user := &model.User{ChatID: "chat-1", FullName: "Иванов Иван", Role: model.RoleAgent, Active: true}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetByChatID("chat-1")
	if err != nil {
		t.Fatalf("GetByChatID failed: %v", err)
	}
	if got.FullName != "Иванов Иван" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := repo.GetByChatID("unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

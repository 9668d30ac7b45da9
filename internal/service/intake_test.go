package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/pkg/objectstore"
	"github.com/dealflowbot/backend/internal/repository"
)

func newIntake(t *testing.T, store objectstore.Client) (*IntakeService, repository.ApplicationRepository, repository.DocumentRepository) {
	t.Helper()
	db := newTestDB(t)
	apps := repository.NewApplicationRepository(db)
	docs := repository.NewDocumentRepository(db)
	return NewIntakeService(testConfig(t), apps, docs, store, nil), apps, docs
}

func TestAcceptFileWithoutStorage(t *testing.T) {
	svc, apps, _ := newIntake(t, objectstore.Disabled{})
	app := &model.Application{DealType: "Покупка", Status: "CREATED"}
	if err := apps.Create(app); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	data := []byte("passport scan bytes")
	doc, err := svc.AcceptFile(context.Background(), app.ID, "passport", data, "passport.pdf")
	if err != nil {
		t.Fatalf("AcceptFile failed: %v", err)
	}

	sum := sha256.Sum256(data)
	if doc.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("hash mismatch: %s", doc.SHA256)
	}
	if doc.RemotePath != "" {
		t.Fatalf("remote path must stay empty without storage, got %s", doc.RemotePath)
	}
	if _, err := os.Stat(doc.LocalPath); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
}

func TestAcceptFileUploadsToDealFolder(t *testing.T) {
	store := &fakeStore{}
	svc, apps, _ := newIntake(t, store)
	app := &model.Application{DealType: "Покупка", Status: "CREATED", StorageFolder: "deals/app_1"}
	if err := apps.Create(app); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	doc, err := svc.AcceptFile(context.Background(), app.ID, "egrn", []byte("egrn"), "egrn.pdf")
	if err != nil {
		t.Fatalf("AcceptFile failed: %v", err)
	}
	if doc.RemotePath != "deals/app_1/egrn.pdf" {
		t.Fatalf("unexpected remote path: %s", doc.RemotePath)
	}
	if len(store.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(store.uploads))
	}
}

func TestAcceptFileKeepsDocumentWhenUploadFails(t *testing.T) {
	store := &fakeStore{failUpload: true}
	svc, apps, docs := newIntake(t, store)
	app := &model.Application{DealType: "Покупка", Status: "CREATED", StorageFolder: "deals/app_1"}
	if err := apps.Create(app); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	doc, err := svc.AcceptFile(context.Background(), app.ID, "other", []byte("x"), "note.txt")
	if err != nil {
		t.Fatalf("upload failure must not fail intake: %v", err)
	}
	if doc.RemotePath != "" {
		t.Fatalf("remote path must stay empty on failure, got %s", doc.RemotePath)
	}

	stored, err := docs.GetByApplication(app.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("document row must survive upload failure: %v, %d rows", err, len(stored))
	}
}

func TestAcceptFileRenamesOnCollision(t *testing.T) {
	svc, apps, _ := newIntake(t, objectstore.Disabled{})
	app := &model.Application{DealType: "Покупка", Status: "CREATED"}
	if err := apps.Create(app); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := svc.AcceptFile(context.Background(), app.ID, "passport", []byte("one"), "scan.pdf")
	if err != nil {
		t.Fatalf("first AcceptFile failed: %v", err)
	}
	second, err := svc.AcceptFile(context.Background(), app.ID, "passport", []byte("two"), "scan.pdf")
	if err != nil {
		t.Fatalf("second AcceptFile failed: %v", err)
	}
	if first.FileName == second.FileName {
		t.Fatalf("colliding names must diverge, both are %s", first.FileName)
	}
	if first.LocalPath == second.LocalPath {
		t.Fatal("staged paths must diverge")
	}
}

func TestFinishRendersProtocol(t *testing.T) {
	db := newTestDB(t)
	apps := repository.NewApplicationRepository(db)
	docs := repository.NewDocumentRepository(db)

	cfg := testConfig(t)
	templatePath := cfg.Data.Dir + "/protocol.txt"
	if err := os.WriteFile(templatePath, []byte("Сделка: {{deal_type}}, адрес: {{address}}"), 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	cfg.Protocol.TemplatePath = templatePath

	svc := NewIntakeService(cfg, apps, docs, objectstore.Disabled{}, nil)
	app := &model.Application{DealType: "Покупка", Address: "ул. Ленина, 1", Status: "CREATED"}
	if err := apps.Create(app); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Finish(context.Background(), app.ID); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	stored, _ := docs.GetByApplication(app.ID)
	if len(stored) != 1 || stored[0].DocType != "protocol" {
		t.Fatalf("expected one protocol document, got %+v", stored)
	}
	content, err := os.ReadFile(stored[0].LocalPath)
	if err != nil {
		t.Fatalf("failed to read rendered protocol: %v", err)
	}
	if string(content) != "Сделка: Покупка, адрес: ул. Ленина, 1" {
		t.Fatalf("unexpected protocol content: %s", content)
	}
}

func TestFinishWithoutTemplateIsNoop(t *testing.T) {
	db := newTestDB(t)
	apps := repository.NewApplicationRepository(db)
	docs := repository.NewDocumentRepository(db)

	cfg := testConfig(t)
	cfg.Protocol.TemplatePath = ""

	svc := NewIntakeService(cfg, apps, docs, objectstore.Disabled{}, nil)
	app := &model.Application{DealType: "Покупка", Status: "CREATED"}
	if err := apps.Create(app); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Finish(context.Background(), app.ID); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	stored, _ := docs.GetByApplication(app.ID)
	if len(stored) != 0 {
		t.Fatalf("no documents expected, got %d", len(stored))
	}
}

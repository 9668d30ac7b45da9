package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/config"
	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/pkg/objectstore"
	"github.com/dealflowbot/backend/internal/repository"
	"github.com/dealflowbot/backend/internal/service/uploader"
)

// IntakeService receives document files for an application, stages them
// locally and syncs them to the deal's external storage folder. Local
// persistence is authoritative; remote sync is best-effort.
type IntakeService struct {
	cfg    *config.Config
	apps   repository.ApplicationRepository
	docs   repository.DocumentRepository
	store  objectstore.Client
	syncer *uploader.Service
}

func NewIntakeService(
	cfg *config.Config,
	apps repository.ApplicationRepository,
	docs repository.DocumentRepository,
	store objectstore.Client,
	syncer *uploader.Service,
) *IntakeService {
	return &IntakeService{cfg: cfg, apps: apps, docs: docs, store: store, syncer: syncer}
}

// AcceptFile hashes the received bytes, writes them to the staging area
// and persists the document row. If the application already has a
// storage folder the file is uploaded there as well; an upload failure
// is logged and queued for retry, never rolled back.
func (s *IntakeService) AcceptFile(ctx context.Context, appID uint, docType string, data []byte, suggestedName string) (*model.Document, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}

	// The hash is taken over the exact received bytes before any upload
	// and is never recomputed afterwards.
	sum := sha256.Sum256(data)
	shaHex := hex.EncodeToString(sum[:])

	name := storageName(docType, suggestedName)
	dir := filepath.Join(s.cfg.Data.StagingDir, fmt.Sprintf("app_%d", appID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	dest := filepath.Join(dir, name)
	if _, statErr := os.Stat(dest); statErr == nil {
		// Same name uploaded again for this application; keep both.
		name = shortID() + "_" + name
		dest = filepath.Join(dir, name)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write staging file: %w", err)
	}

	doc := &model.Document{
		ApplicationID: appID,
		DocType:       docType,
		FileName:      name,
		LocalPath:     dest,
		SHA256:        shaHex,
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	if app.StorageFolder != "" {
		if upErr := s.store.Upload(ctx, app.StorageFolder, dest, name); upErr != nil {
			klog.Errorf("загрузка в хранилище не удалась, документ поставлен в очередь: appID=%d, documentID=%d, error=%v",
				appID, doc.ID, upErr)
			if s.syncer != nil {
				s.syncer.Enqueue(uploader.NewJob(doc.ID, app.StorageFolder, dest, name))
			}
		} else {
			doc.RemotePath = path.Join(app.StorageFolder, name)
			if saveErr := s.docs.Save(doc); saveErr != nil {
				klog.Errorf("не удалось сохранить remote_path: documentID=%d, error=%v", doc.ID, saveErr)
			}
		}
	}

	klog.V(6).Infof("документ принят: appID=%d, type=%s, sha256=%s", appID, docType, shaHex)
	return doc, nil
}

// Finish completes the intake stage. When a protocol template is
// configured, the rendered protocol is stored alongside the uploaded
// documents; rendering failures are logged and do not undo accepted
// documents.
func (s *IntakeService) Finish(ctx context.Context, appID uint) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}

	templatePath := s.cfg.Protocol.TemplatePath
	if templatePath == "" {
		return app, nil
	}
	if _, statErr := os.Stat(templatePath); statErr != nil {
		klog.V(6).Infof("шаблон протокола не найден, пропускаем: path=%s", templatePath)
		return app, nil
	}

	rendered, err := RenderProtocol(templatePath, protocolFields(app))
	if err != nil {
		klog.Errorf("не удалось заполнить протокол: appID=%d, error=%v", appID, err)
		return app, nil
	}
	protocolName := fmt.Sprintf("protocol_app_%d%s", appID, filepath.Ext(templatePath))
	if _, err := s.AcceptFile(ctx, appID, "protocol", rendered, protocolName); err != nil {
		klog.Errorf("не удалось сохранить протокол: appID=%d, error=%v", appID, err)
	}
	return app, nil
}

// Documents lists the stored files of an application.
func (s *IntakeService) Documents(appID uint) ([]model.Document, error) {
	return s.docs.GetByApplication(appID)
}

func protocolFields(app *model.Application) map[string]string {
	contractNo := ""
	if app.ContractNo != nil {
		contractNo = *app.ContractNo
	}
	return map[string]string{
		"app_id":        fmt.Sprintf("%d", app.ID),
		"deal_type":     app.DealType,
		"contract_no":   contractNo,
		"protocol_date": app.ProtocolDate,
		"address":       app.Address,
		"object_type":   app.ObjectType,
		"head_name":     app.HeadName,
		"agent_name":    app.AgentName,
	}
}

// storageName derives a collision-safe filename from the declared type
// when the source name is absent.
func storageName(docType, suggested string) string {
	if suggested == "" {
		return fmt.Sprintf("%s_%s.bin", docType, shortID())
	}
	return filepath.Base(suggested)
}

func shortID() string {
	return uuid.NewString()[:8]
}

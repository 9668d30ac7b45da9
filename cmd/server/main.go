package main

import (
	"context"
	"flag"
	"os"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/config"
	"github.com/dealflowbot/backend/internal/chat"
	"github.com/dealflowbot/backend/internal/eventbus"
	"github.com/dealflowbot/backend/internal/handler"
	"github.com/dealflowbot/backend/internal/notify"
	"github.com/dealflowbot/backend/internal/pkg/database"
	"github.com/dealflowbot/backend/internal/pkg/objectstore"
	"github.com/dealflowbot/backend/internal/repository"
	"github.com/dealflowbot/backend/internal/router"
	"github.com/dealflowbot/backend/internal/service"
	"github.com/dealflowbot/backend/internal/service/uploader"
	"github.com/dealflowbot/backend/internal/subscriber"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		klog.Fatalf("не удалось создать каталог данных: %v", err)
	}
	if err := os.MkdirAll(cfg.Data.StagingDir, 0755); err != nil {
		klog.Fatalf("не удалось создать каталог staging: %v", err)
	}

	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		klog.Fatalf("не удалось инициализировать базу данных: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	var store objectstore.Client = objectstore.Disabled{}
	if cfg.Storage.Endpoint != "" {
		minioClient, err := objectstore.NewMinioClient(&cfg.Storage)
		if err != nil {
			klog.Fatalf("не удалось подключиться к хранилищу: %v", err)
		}
		if err := minioClient.EnsureBucket(context.Background()); err != nil {
			klog.Fatalf("не удалось подготовить бакет: %v", err)
		}
		store = minioClient
	} else {
		klog.Warning("внешнее хранилище не настроено, документы остаются только в staging")
	}

	syncer, err := uploader.New(4, store, docRepo)
	if err != nil {
		klog.Fatalf("не удалось запустить службу синхронизации: %v", err)
	}
	defer syncer.Shutdown()

	bus := eventbus.NewApplicationEventBus()
	outbox := chat.NewOutbox()
	subscriber.NewNotificationSubscriber(notify.NewService(outbox)).Register(bus)

	appService := service.NewApplicationService(cfg, appRepo, userRepo, taskRepo, store, bus)
	questionnaireService := service.NewQuestionnaireService(answerRepo)
	intakeService := service.NewIntakeService(cfg, appRepo, docRepo, store, syncer)

	chatRouter := chat.NewRouter(
		userRepo,
		chat.NewSessionManager(),
		outbox,
		appService,
		questionnaireService,
		intakeService,
	)

	engine := router.Setup(cfg,
		handler.NewWebhookHandler(chatRouter, outbox),
		handler.NewApplicationHandler(appService, intakeService, questionnaireService),
		handler.NewUserHandler(userRepo),
	)

	klog.Infof("сервер запущен: port=%s", cfg.Server.Port)
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		klog.Fatalf("сервер остановлен с ошибкой: %v", err)
	}
}

package uploader

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/pkg/objectstore"
	"github.com/dealflowbot/backend/internal/repository"
)

// Job is one pending remote sync of a staged document.
type Job struct {
	DocumentID uint
	Folder     string
	LocalPath  string
	RemoteName string
	Attempts   int
	MaxRetries int
}

func NewJob(documentID uint, folder, localPath, remoteName string) *Job {
	return &Job{
		DocumentID: documentID,
		Folder:     folder,
		LocalPath:  localPath,
		RemoteName: remoteName,
		MaxRetries: 5,
	}
}

// Service retries failed storage uploads in the background. The queue is
// in-memory only: the database row is already authoritative, a lost
// retry just leaves remote sync for a later manual re-upload.
type Service struct {
	pool  *ants.Pool
	store objectstore.Client
	docs  repository.DocumentRepository

	jobs chan *Job

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	retryDelay time.Duration
}

func New(maxWorkers int, store objectstore.Client, docs repository.DocumentRepository) (*Service, error) {
	pool, err := ants.NewPool(maxWorkers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(1000),
	)
	if err != nil {
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		pool:       pool,
		store:      store,
		docs:       docs,
		jobs:       make(chan *Job, 120),
		ctx:        ctx,
		cancel:     cancel,
		retryDelay: 2 * time.Second,
	}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

// Enqueue submits a sync job. A full queue drops the job with a log
// line; the document row keeps an empty remote path in that case.
func (s *Service) Enqueue(job *Job) {
	if job == nil {
		return
	}
	select {
	case s.jobs <- job:
	default:
		klog.Warningf("очередь синхронизации переполнена, загрузка отложена: documentID=%d", job.DocumentID)
	}
}

func (s *Service) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.jobs:
			j := job
			if err := s.pool.Submit(func() { s.process(j) }); err != nil {
				klog.Errorf("не удалось отправить задачу в пул: %v", err)
			}
		}
	}
}

func (s *Service) process(job *Job) {
	err := s.store.Upload(s.ctx, job.Folder, job.LocalPath, job.RemoteName)
	if err == nil {
		doc, getErr := s.docs.Get(job.DocumentID)
		if getErr != nil {
			klog.Errorf("документ не найден после загрузки: documentID=%d, error=%v", job.DocumentID, getErr)
			return
		}
		doc.RemotePath = path.Join(job.Folder, job.RemoteName)
		if saveErr := s.docs.Save(doc); saveErr != nil {
			klog.Errorf("не удалось сохранить remote_path: documentID=%d, error=%v", job.DocumentID, saveErr)
			return
		}
		klog.V(6).Infof("документ синхронизирован: documentID=%d, path=%s", job.DocumentID, doc.RemotePath)
		return
	}

	job.Attempts++
	if job.Attempts >= job.MaxRetries {
		klog.Errorf("синхронизация не удалась после %d попыток: documentID=%d, error=%v",
			job.Attempts, job.DocumentID, err)
		return
	}
	klog.V(6).Infof("повтор синхронизации: documentID=%d, attempt=%d, error=%v",
		job.DocumentID, job.Attempts, err)
	delay := s.retryDelay * time.Duration(1<<job.Attempts)
	time.AfterFunc(delay, func() {
		select {
		case <-s.ctx.Done():
		default:
			s.Enqueue(job)
		}
	})
}

func (s *Service) Shutdown() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.pool.Release()
	})
}

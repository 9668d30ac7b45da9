package service

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/config"
	"github.com/dealflowbot/backend/internal/eventbus"
	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/pkg/objectstore"
	"github.com/dealflowbot/backend/internal/repository"
	"github.com/dealflowbot/backend/internal/service/statemachine"
)

// CreationDraft carries the fields collected by the creation flow.
type CreationDraft struct {
	DealType     string
	ContractNo   *string
	ProtocolDate string
	Address      string
	ObjectType   string
	HeadName     string
	AgentName    string
}

// ApplicationService owns the application status field. Every transition
// is authorized against the state machine, executed as a guarded status
// update and followed by its notification side effects. Storage calls
// happen outside the transaction and never block a transition.
type ApplicationService struct {
	cfg   *config.Config
	apps  repository.ApplicationRepository
	users repository.UserRepository
	tasks repository.TaskRepository
	store objectstore.Client
	bus   *eventbus.ApplicationEventBus
}

func NewApplicationService(
	cfg *config.Config,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	store objectstore.Client,
	bus *eventbus.ApplicationEventBus,
) *ApplicationService {
	return &ApplicationService{cfg: cfg, apps: apps, users: users, tasks: tasks, store: store, bus: bus}
}

// Create persists a new application in CREATED status and provisions its
// external storage folder. Folder or publish failures are logged; the
// application is valid without them.
func (s *ApplicationService) Create(ctx context.Context, agent *model.User, draft CreationDraft) (*model.Application, error) {
	agentName := draft.AgentName
	if agentName == "" {
		agentName = agent.FullName
	}
	app := &model.Application{
		AgentID:      &agent.ID,
		DealType:     draft.DealType,
		ContractNo:   draft.ContractNo,
		ProtocolDate: draft.ProtocolDate,
		Address:      draft.Address,
		ObjectType:   draft.ObjectType,
		HeadName:     draft.HeadName,
		AgentName:    agentName,
		Status:       string(statemachine.StatusCreated),
	}
	if err := s.apps.Create(app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	folder, err := s.store.CreateFolder(ctx, fmt.Sprintf("app_%d", app.ID))
	if err != nil {
		klog.Errorf("не удалось создать папку в хранилище: appID=%d, error=%v", app.ID, err)
	} else {
		app.StorageFolder = folder
		if url, pubErr := s.store.Publish(ctx, folder); pubErr != nil {
			klog.Errorf("не удалось опубликовать папку: appID=%d, error=%v", app.ID, pubErr)
		} else {
			app.StoragePublicURL = url
		}
		if saveErr := s.apps.Save(app); saveErr != nil {
			klog.Errorf("не удалось сохранить ссылки хранилища: appID=%d, error=%v", app.ID, saveErr)
		}
	}

	// Every team lead gets a review notification.
	rops, listErr := s.users.ListByRole(model.RoleRop)
	if listErr != nil {
		klog.Errorf("не удалось получить список РОПов: %v", listErr)
	}
	for _, rop := range rops {
		s.publish(ctx, eventbus.ApplicationEvent{
			Type:          eventbus.AppEventCreated,
			ApplicationID: app.ID,
			RopChatID:     rop.ChatID,
			AgentName:     app.AgentName,
		})
	}

	klog.V(6).Infof("заявка создана: appID=%d, agentID=%d", app.ID, agent.ID)
	return app, nil
}

// Approve moves CREATED -> TO_LAWYER on behalf of a team lead.
func (s *ApplicationService) Approve(ctx context.Context, actor *model.User, appID uint) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Authorize(statemachine.ApplicationStatus(app.Status), statemachine.TransitionApprove, actor.Role); err != nil {
		return nil, err
	}
	updated, err := s.apps.UpdateStatus(appID,
		string(statemachine.StatusCreated), string(statemachine.StatusToLawyer),
		func(a *model.Application) { a.RopID = &actor.ID })
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.ApplicationEvent{
		Type:          eventbus.AppEventApproved,
		ApplicationID: appID,
		AgentChatID:   s.chatID(updated.AgentID),
		ActorName:     actor.FullName,
	})
	return updated, nil
}

// Return moves CREATED -> RETURNED_ROP with the reviewer's comment.
func (s *ApplicationService) Return(ctx context.Context, actor *model.User, appID uint, comment string) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Authorize(statemachine.ApplicationStatus(app.Status), statemachine.TransitionReturn, actor.Role); err != nil {
		return nil, err
	}
	updated, err := s.apps.UpdateStatus(appID,
		string(statemachine.StatusCreated), string(statemachine.StatusReturnedRop),
		func(a *model.Application) { a.RopID = &actor.ID })
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.ApplicationEvent{
		Type:          eventbus.AppEventReturned,
		ApplicationID: appID,
		AgentChatID:   s.chatID(updated.AgentID),
		ActorName:     actor.FullName,
		Comment:       comment,
	})
	return updated, nil
}

// Resubmit moves RETURNED_ROP -> CREATED after the agent edited the
// returned application. The recorded team lead is cleared and nothing is
// notified until the next review.
func (s *ApplicationService) Resubmit(ctx context.Context, actor *model.User, appID uint, edits map[string]string) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}
	if app.AgentID == nil || *app.AgentID != actor.ID {
		return nil, statemachine.ErrPermissionDenied
	}
	if err := statemachine.Authorize(statemachine.ApplicationStatus(app.Status), statemachine.TransitionResubmit, actor.Role); err != nil {
		return nil, err
	}
	return s.apps.UpdateStatus(appID,
		string(statemachine.StatusReturnedRop), string(statemachine.StatusCreated),
		func(a *model.Application) {
			a.RopID = nil
			for field, value := range edits {
				applyEdit(a, field, value)
			}
		})
}

// AssignTask moves TO_LAWYER -> LAWYER_TASK and records an open task for
// the agent.
func (s *ApplicationService) AssignTask(ctx context.Context, actor *model.User, appID uint, text string) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Authorize(statemachine.ApplicationStatus(app.Status), statemachine.TransitionAssignTask, actor.Role); err != nil {
		return nil, err
	}
	updated, err := s.apps.UpdateStatus(appID,
		string(statemachine.StatusToLawyer), string(statemachine.StatusLawyerTask),
		func(a *model.Application) { a.LawyerID = &actor.ID })
	if err != nil {
		return nil, err
	}
	task := &model.Task{
		ApplicationID: appID,
		AuthorID:      actor.ID,
		AssigneeID:    updated.AgentID,
		Text:          text,
		Status:        model.TaskStatusOpen,
	}
	if err := s.tasks.Create(task); err != nil {
		klog.Errorf("не удалось сохранить задачу: appID=%d, error=%v", appID, err)
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	s.publish(ctx, eventbus.ApplicationEvent{
		Type:          eventbus.AppEventTaskAssigned,
		ApplicationID: appID,
		AgentChatID:   s.chatID(updated.AgentID),
		ActorName:     actor.FullName,
		TaskText:      text,
	})
	return updated, nil
}

// CompleteTasks moves LAWYER_TASK -> TO_LAWYER once the agent finished
// the requested uploads; open tasks are marked done and the lawyer is
// notified.
func (s *ApplicationService) CompleteTasks(ctx context.Context, actor *model.User, appID uint) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}
	if app.AgentID == nil || *app.AgentID != actor.ID {
		return nil, statemachine.ErrPermissionDenied
	}
	if err := statemachine.Authorize(statemachine.ApplicationStatus(app.Status), statemachine.TransitionCompleteTask, actor.Role); err != nil {
		return nil, err
	}
	updated, err := s.apps.UpdateStatus(appID,
		string(statemachine.StatusLawyerTask), string(statemachine.StatusToLawyer), nil)
	if err != nil {
		return nil, err
	}
	open, err := s.tasks.GetOpenByApplication(appID)
	if err != nil {
		klog.Errorf("не удалось получить открытые задачи: appID=%d, error=%v", appID, err)
	}
	for i := range open {
		open[i].Status = model.TaskStatusDone
		if err := s.tasks.Save(&open[i]); err != nil {
			klog.Errorf("не удалось закрыть задачу: taskID=%d, error=%v", open[i].ID, err)
		}
	}
	s.publish(ctx, eventbus.ApplicationEvent{
		Type:          eventbus.AppEventTasksCompleted,
		ApplicationID: appID,
		LawyerChatID:  s.chatID(updated.LawyerID),
		AgentName:     updated.AgentName,
	})
	return updated, nil
}

// Close moves TO_LAWYER -> CLOSED. CLOSED is terminal.
func (s *ApplicationService) Close(ctx context.Context, actor *model.User, appID uint) (*model.Application, error) {
	app, err := s.apps.Get(appID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Authorize(statemachine.ApplicationStatus(app.Status), statemachine.TransitionClose, actor.Role); err != nil {
		return nil, err
	}
	updated, err := s.apps.UpdateStatus(appID,
		string(statemachine.StatusToLawyer), string(statemachine.StatusClosed),
		func(a *model.Application) { a.LawyerID = &actor.ID })
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.ApplicationEvent{
		Type:          eventbus.AppEventClosed,
		ApplicationID: appID,
		AgentChatID:   s.chatID(updated.AgentID),
	})
	return updated, nil
}

func (s *ApplicationService) Get(appID uint) (*model.Application, error) {
	return s.apps.Get(appID)
}

func (s *ApplicationService) List() ([]model.Application, error) {
	return s.apps.List()
}

func (s *ApplicationService) ListByStatus(status statemachine.ApplicationStatus) ([]model.Application, error) {
	return s.apps.ListByStatus(string(status))
}

func (s *ApplicationService) ListByAgent(agentID uint) ([]model.Application, error) {
	return s.apps.ListByAgent(agentID)
}

func (s *ApplicationService) Tasks(appID uint) ([]model.Task, error) {
	return s.tasks.GetByApplication(appID)
}

// publish delivers a lifecycle event; notification failures never affect
// the transition that already committed.
func (s *ApplicationService) publish(ctx context.Context, event eventbus.ApplicationEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event.Type, event); err != nil {
		klog.Errorf("ошибка обработки события: type=%s, appID=%d, error=%v", event.Type, event.ApplicationID, err)
	}
}

func (s *ApplicationService) chatID(userID *uint) string {
	if userID == nil {
		return ""
	}
	user, err := s.users.Get(*userID)
	if err != nil {
		klog.V(6).Infof("пользователь не найден: id=%d, error=%v", *userID, err)
		return ""
	}
	return user.ChatID
}

func applyEdit(app *model.Application, field, value string) {
	switch field {
	case "deal_type":
		app.DealType = value
	case "contract_no":
		if value == "" {
			app.ContractNo = nil
		} else {
			app.ContractNo = &value
		}
	case "protocol_date":
		app.ProtocolDate = value
	case "address":
		app.Address = value
	case "object_type":
		app.ObjectType = value
	case "head_name":
		app.HeadName = value
	case "agent_name":
		app.AgentName = value
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dealflowbot/backend/internal/eventbus"
	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/pkg/objectstore"
	"github.com/dealflowbot/backend/internal/repository"
	"github.com/dealflowbot/backend/internal/service/statemachine"
)

type lifecycleFixture struct {
	svc    *ApplicationService
	users  repository.UserRepository
	tasks  repository.TaskRepository
	agent  *model.User
	rop    *model.User
	lawyer *model.User
	events []eventbus.ApplicationEvent
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	apps := repository.NewApplicationRepository(db)
	tasks := repository.NewTaskRepository(db)

	f := &lifecycleFixture{users: users, tasks: tasks}

	bus := eventbus.NewApplicationEventBus()
	record := func(ctx context.Context, event eventbus.ApplicationEvent) error {
		f.events = append(f.events, event)
		return nil
	}
	for _, eventType := range []eventbus.ApplicationEventType{
		eventbus.AppEventCreated, eventbus.AppEventApproved, eventbus.AppEventReturned,
		eventbus.AppEventTaskAssigned, eventbus.AppEventTasksCompleted, eventbus.AppEventClosed,
	} {
		bus.Subscribe(eventType, record)
	}

	f.svc = NewApplicationService(testConfig(t), apps, users, tasks, objectstore.Disabled{}, bus)
	f.agent = createUser(t, users, "chat-agent", model.RoleAgent)
	f.rop = createUser(t, users, "chat-rop", model.RoleRop)
	f.lawyer = createUser(t, users, "chat-lawyer", model.RoleLawyer)
	return f
}

func (f *lifecycleFixture) create(t *testing.T) *model.Application {
	t.Helper()
	app, err := f.svc.Create(context.Background(), f.agent, CreationDraft{
		DealType:     "Покупка",
		ProtocolDate: "01.06.2024",
		Address:      "ул. Ленина, 1",
		ObjectType:   "Квартира",
		HeadName:     "Петров П.П.",
		AgentName:    "Иванов И.И.",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return app
}

func (f *lifecycleFixture) lastEvent(t *testing.T) eventbus.ApplicationEvent {
	t.Helper()
	if len(f.events) == 0 {
		t.Fatal("no events published")
	}
	return f.events[len(f.events)-1]
}

func TestCreatePublishesToEveryTeamLead(t *testing.T) {
	f := newLifecycleFixture(t)
	createUser(t, f.users, "chat-rop-2", model.RoleRop)

	app := f.create(t)
	if app.Status != string(statemachine.StatusCreated) {
		t.Fatalf("expected CREATED, got %s", app.Status)
	}

	var ropChats []string
	for _, e := range f.events {
		if e.Type == eventbus.AppEventCreated {
			ropChats = append(ropChats, e.RopChatID)
		}
	}
	if len(ropChats) != 2 {
		t.Fatalf("expected a notification per team lead, got %v", ropChats)
	}
}

func TestApproveMovesToLawyer(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.create(t)

	updated, err := f.svc.Approve(context.Background(), f.rop, app.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if updated.Status != string(statemachine.StatusToLawyer) {
		t.Fatalf("expected TO_LAWYER, got %s", updated.Status)
	}
	if updated.RopID == nil || *updated.RopID != f.rop.ID {
		t.Fatal("reviewer not recorded")
	}

	event := f.lastEvent(t)
	if event.Type != eventbus.AppEventApproved || event.AgentChatID != "chat-agent" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestReturnAndResubmit(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.create(t)

	returned, err := f.svc.Return(context.Background(), f.rop, app.ID, "нет выписки ЕГРН")
	if err != nil {
		t.Fatalf("Return failed: %v", err)
	}
	if returned.Status != string(statemachine.StatusReturnedRop) {
		t.Fatalf("expected RETURNED_ROP, got %s", returned.Status)
	}
	event := f.lastEvent(t)
	if event.Comment != "нет выписки ЕГРН" {
		t.Fatalf("comment not delivered: %+v", event)
	}

	eventsBefore := len(f.events)
	resubmitted, err := f.svc.Resubmit(context.Background(), f.agent, app.ID, map[string]string{
		"address":     "ул. Ленина, 2",
		"contract_no": "",
	})
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if resubmitted.Status != string(statemachine.StatusCreated) {
		t.Fatalf("expected CREATED after resubmit, got %s", resubmitted.Status)
	}
	if resubmitted.Address != "ул. Ленина, 2" {
		t.Fatalf("edit not applied: %s", resubmitted.Address)
	}
	if resubmitted.ContractNo != nil {
		t.Fatal("empty contract number must clear the field")
	}
	if resubmitted.RopID != nil {
		t.Fatal("previous reviewer must be cleared")
	}
	if len(f.events) != eventsBefore {
		t.Fatal("resubmit must not notify anyone")
	}
}

func TestResubmitRequiresOwnership(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.create(t)
	if _, err := f.svc.Return(context.Background(), f.rop, app.ID, "комментарий"); err != nil {
		t.Fatalf("Return failed: %v", err)
	}

	stranger := createUser(t, f.users, "chat-agent-2", model.RoleAgent)
	_, err := f.svc.Resubmit(context.Background(), stranger, app.ID, nil)
	if !errors.Is(err, statemachine.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.create(t)
	if _, err := f.svc.Approve(context.Background(), f.rop, app.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	updated, err := f.svc.AssignTask(context.Background(), f.lawyer, app.ID, "приложите согласие супруги")
	if err != nil {
		t.Fatalf("AssignTask failed: %v", err)
	}
	if updated.Status != string(statemachine.StatusLawyerTask) {
		t.Fatalf("expected LAWYER_TASK, got %s", updated.Status)
	}
	open, err := f.tasks.GetOpenByApplication(app.ID)
	if err != nil || len(open) != 1 {
		t.Fatalf("expected one open task: %v, %d", err, len(open))
	}
	if event := f.lastEvent(t); event.TaskText != "приложите согласие супруги" {
		t.Fatalf("task text not delivered: %+v", event)
	}

	done, err := f.svc.CompleteTasks(context.Background(), f.agent, app.ID)
	if err != nil {
		t.Fatalf("CompleteTasks failed: %v", err)
	}
	if done.Status != string(statemachine.StatusToLawyer) {
		t.Fatalf("expected TO_LAWYER, got %s", done.Status)
	}
	open, _ = f.tasks.GetOpenByApplication(app.ID)
	if len(open) != 0 {
		t.Fatalf("open tasks must be closed, %d left", len(open))
	}
	if event := f.lastEvent(t); event.LawyerChatID != "chat-lawyer" {
		t.Fatalf("lawyer not notified: %+v", event)
	}
}

func TestCloseIsFinal(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.create(t)
	if _, err := f.svc.Approve(context.Background(), f.rop, app.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	closed, err := f.svc.Close(context.Background(), f.lawyer, app.ID)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if closed.Status != string(statemachine.StatusClosed) {
		t.Fatalf("expected CLOSED, got %s", closed.Status)
	}

	_, err = f.svc.AssignTask(context.Background(), f.lawyer, app.ID, "ещё задача")
	if !errors.Is(err, statemachine.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestApproveRequiresTeamLeadRole(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.create(t)

	_, err := f.svc.Approve(context.Background(), f.agent, app.ID)
	if !errors.Is(err, statemachine.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestApproveUnknownApplication(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.svc.Approve(context.Background(), f.rop, 12345)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

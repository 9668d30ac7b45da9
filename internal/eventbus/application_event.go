package eventbus

type ApplicationEventType string

const (
	AppEventCreated        ApplicationEventType = "Created"
	AppEventApproved       ApplicationEventType = "Approved"
	AppEventReturned       ApplicationEventType = "Returned"
	AppEventTaskAssigned   ApplicationEventType = "TaskAssigned"
	AppEventTasksCompleted ApplicationEventType = "TasksCompleted"
	AppEventClosed         ApplicationEventType = "Closed"
)

// ApplicationEvent carries everything a notification needs, resolved at
// publish time: chat identifiers instead of row ids, so subscribers stay
// free of repository lookups.
type ApplicationEvent struct {
	Type          ApplicationEventType
	ApplicationID uint
	AgentChatID   string
	LawyerChatID  string
	RopChatID     string
	ActorName     string
	AgentName     string
	Comment       string // team-lead return comment
	TaskText      string // lawyer task text
}

type ApplicationEventHandler = Handler[ApplicationEvent]
type ApplicationEventBus = Bus[ApplicationEventType, ApplicationEvent]

func NewApplicationEventBus() *ApplicationEventBus {
	return NewBus[ApplicationEventType, ApplicationEvent]()
}

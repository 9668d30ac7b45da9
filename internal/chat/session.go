package chat

import (
	"sync"

	"github.com/dealflowbot/backend/internal/service"
)

// Flow is the tagged union of conversation flow kinds. Each concrete
// flow carries only the fields its steps read, so a step can never pick
// up a value collected by a different flow.
type Flow interface {
	flowName() string
}

type RegStep int

const (
	RegStepFullName RegStep = iota
	RegStepDepartment
)

type RegistrationFlow struct {
	Step     RegStep
	FullName string
}

func (*RegistrationFlow) flowName() string { return "registration" }

type CreateStep int

const (
	CreateStepDealType CreateStep = iota
	CreateStepContractNo
	CreateStepProtocolDate
	CreateStepAddress
	CreateStepObjectType
	CreateStepHeadName
	CreateStepAgentName
	CreateStepQuestionnaire
	CreateStepChooseDocType
	CreateStepAwaitFile
)

type CreationFlow struct {
	Step           CreateStep
	ApplicationID  uint // set once the draft is persisted
	Draft          service.CreationDraft
	QuestionIndex  int
	CurrentDocType string
}

func (*CreationFlow) flowName() string { return "creation" }

type EditStep int

const (
	EditStepSelectField EditStep = iota
	EditStepEnterValue
	EditStepDecide
)

type EditFlow struct {
	Step          EditStep
	ApplicationID uint
	Field         string
	Edits         map[string]string
}

func (*EditFlow) flowName() string { return "edit" }

// UploadFlow adds documents to an existing application outside creation
// (after a lawyer task or a return).
type UploadFlow struct {
	ApplicationID  uint
	CurrentDocType string
	AwaitingFile   bool
}

func (*UploadFlow) flowName() string { return "upload" }

// ReturnCommentFlow waits for the team lead's return comment.
type ReturnCommentFlow struct {
	ApplicationID uint
}

func (*ReturnCommentFlow) flowName() string { return "return_comment" }

// TaskTextFlow waits for the lawyer's task text.
type TaskTextFlow struct {
	ApplicationID uint
}

func (*TaskTextFlow) flowName() string { return "task_text" }

type Session struct {
	ChatID string
	Flow   Flow
}

// SessionManager keeps the ephemeral per-chat state. One active flow per
// chat; starting a new flow discards the previous one (last-writer-wins).
// Nothing here survives a restart, which is an accepted failure mode.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// LockChat serializes update handling for one chat. The caller holds the
// chat's lock until the returned release function runs; updates for
// different chats proceed independently.
func (m *SessionManager) LockChat(chatID string) func() {
	m.mu.Lock()
	lock, ok := m.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[chatID] = lock
	}
	m.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (m *SessionManager) Start(chatID string, flow Flow) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := &Session{ChatID: chatID, Flow: flow}
	m.sessions[chatID] = sess
	return sess
}

func (m *SessionManager) Get(chatID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[chatID]
}

func (m *SessionManager) Clear(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

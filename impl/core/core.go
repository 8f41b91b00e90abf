package core

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/service/readstatus"
)

type ChatService interface {
	ListConversations(ctx context.Context, sender string) ([]entity.Conversation, error)
	GetMessages(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error)
	ListSources(ctx context.Context) ([]entity.Source, error)
	GeneralStats(ctx context.Context) (*entity.GeneralStats, error)
	SetAIEnabled(ctx context.Context, sessionID string, enabled bool) error
	ChangeStatus(ctx context.Context, sessionID string, to entity.LeadStatus) (entity.LeadStatus, error)
}

type Roster interface {
	ActiveAgents(ctx context.Context) ([]entity.Agent, error)
	Agent(ctx context.Context, id int64) (*entity.Agent, error)
	CreateAgent(ctx context.Context, req entity.NewAgent) (*entity.Agent, error)
	DeactivateAgent(ctx context.Context, id int64) error
}

type AgentStore interface {
	CurrentAgent(ctx context.Context, user string) (*entity.Agent, error)
	SetCurrentAgent(ctx context.Context, user string, agent *entity.Agent) error
	ClearCurrentAgent(ctx context.Context, user string) error
}

type Dispatcher interface {
	Send(ctx context.Context, out entity.Outbound, agent string) (*entity.DispatchResult, error)
}

type DispatchLog interface {
	DispatchHistory(ctx context.Context, sessionID string, limit int64) ([]entity.DispatchRecord, error)
}

type FileStore interface {
	DownloadFile(ctx context.Context, id string) (string, entity.FileMetadata, io.ReadCloser, error)
}

type Feed interface {
	Subscribe() (<-chan entity.ChatMessage, func())
}

type Broadcaster interface {
	BroadcastReadReceipt(sessionID string, agent entity.Agent, at time.Time)
	SendToUser(username, eventType string, data interface{})
}

type Core struct {
	chat        ChatService
	roster      Roster
	agents      AgentStore
	reads       readstatus.Store
	readOpts    readstatus.Options
	dispatcher  Dispatcher
	dispatchLog DispatchLog
	files       FileStore
	fileSecret  string
	fileTTL     time.Duration
	feed        Feed
	broadcaster Broadcaster
	pollEvery   time.Duration

	mu        sync.Mutex
	caches    map[string]*readstatus.Cache
	memAgents map[string]entity.Agent

	log *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log:       log.With(sl.Module("core")),
		readOpts:  readstatus.DefaultOptions(),
		pollEvery: 5 * time.Second,
		caches:    make(map[string]*readstatus.Cache),
		memAgents: make(map[string]entity.Agent),
	}
}

func (c *Core) SetChatService(chat ChatService) {
	c.chat = chat
}

func (c *Core) SetRoster(roster Roster) {
	c.roster = roster
}

// SetAgentStore enables the shared store for selected agents. Without it the
// selection is kept in memory for the life of the process.
func (c *Core) SetAgentStore(agents AgentStore) {
	c.agents = agents
}

func (c *Core) SetReadStore(reads readstatus.Store, opts readstatus.Options) {
	c.reads = reads
	c.readOpts = opts
}

func (c *Core) SetDispatcher(dispatcher Dispatcher) {
	c.dispatcher = dispatcher
}

func (c *Core) SetDispatchLog(dispatchLog DispatchLog) {
	c.dispatchLog = dispatchLog
}

// SetFileStore enables signed links to archived images. Links stay valid for ttl.
func (c *Core) SetFileStore(files FileStore, secret string, ttl time.Duration) {
	c.files = files
	c.fileSecret = secret
	c.fileTTL = ttl
}

func (c *Core) SetFeed(feed Feed, pollEvery time.Duration) {
	c.feed = feed
	if pollEvery > 0 {
		c.pollEvery = pollEvery
	}
}

func (c *Core) SetBroadcaster(broadcaster Broadcaster) {
	c.broadcaster = broadcaster
}

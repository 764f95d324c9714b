package store

import "time"

// Event is a durable record that something happened or was detected.
// Immutable once created except the processed flag.
type Event struct {
	ID         int64          `json:"id"`
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
	Processed  bool           `json:"processed"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EventHook maps an event type to an agent that should run when it fires.
type EventHook struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	AgentName string    `json:"agent_name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Schedule runs an agent on a fixed cadence. One schedule per agent name.
type Schedule struct {
	ID        int64      `json:"id"`
	AgentName string     `json:"agent_name"`
	Interval  string     `json:"interval"` // hourly, daily, weekdays, weekly
	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ScheduleLog is one row per scheduler invocation of an agent.
type ScheduleLog struct {
	ID              int64      `json:"id"`
	ScheduleID      int64      `json:"schedule_id"`
	AgentName       string     `json:"agent_name"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Status          string     `json:"status"` // running, completed, failed
	Output          string     `json:"output,omitempty"`
	ActionsProposed int        `json:"actions_proposed"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PendingAction is a proposed mutation awaiting human approval.
type PendingAction struct {
	ID         int64          `json:"id"`
	ActionType string         `json:"action_type"`
	Payload    map[string]any `json:"payload"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Status     string         `json:"status"` // pending, approved, rejected
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	AgentName  string         `json:"agent_name,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	MemoryID   *int64         `json:"memory_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AgentMemory records what an agent proposed and how a human resolved it.
type AgentMemory struct {
	ID            int64          `json:"id"`
	AgentName     string         `json:"agent_name"`
	RunID         string         `json:"run_id"`
	ContactID     *int64         `json:"contact_id,omitempty"`
	DealID        *int64         `json:"deal_id,omitempty"`
	ActionType    string         `json:"action_type"`
	Payload       map[string]any `json:"payload"`
	Reasoning     string         `json:"reasoning,omitempty"`
	Outcome       string         `json:"outcome"` // pending, approved, rejected
	HumanFeedback string         `json:"human_feedback,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AuditEntry records a single tool or command invocation.
type AuditEntry struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Command    string    `json:"command"`
	Args       string    `json:"args,omitempty"`
	Result     string    `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Contact is the minimal contact record the automation layer reads and
// touches. Full contact management lives outside this core.
type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Org       string    `json:"org,omitempty"`
	Warmth    string    `json:"warmth"` // cold, warm, hot
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deal is a sales opportunity moving through pipeline stages.
type Deal struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	ContactID *int64    `json:"contact_id,omitempty"`
	Value     int64     `json:"value"`
	Currency  string    `json:"currency"`
	Stage     string    `json:"stage"`
	Priority  string    `json:"priority"` // low, medium, high
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is a to-do item, optionally linked to a contact or deal.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	ContactID   *int64     `json:"contact_id,omitempty"`
	DealID      *int64     `json:"deal_id,omitempty"`
	Due         string     `json:"due,omitempty"` // ISO date
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Interaction is a logged touchpoint: email, call, meeting, note.
type Interaction struct {
	ID         int64     `json:"id"`
	ContactID  *int64    `json:"contact_id,omitempty"`
	DealID     *int64    `json:"deal_id,omitempty"`
	Type       string    `json:"type"`
	Direction  string    `json:"direction,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Edge is a typed relationship between two entities.
type Edge struct {
	ID        int64     `json:"id"`
	FromType  string    `json:"from_type"`
	FromID    int64     `json:"from_id"`
	ToType    string    `json:"to_type"`
	ToID      int64     `json:"to_id"`
	Relation  string    `json:"relation"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

const Schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT,
	role TEXT,
	org TEXT,
	warmth TEXT NOT NULL DEFAULT 'cold',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS deals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	contact_id INTEGER REFERENCES contacts(id),
	value INTEGER NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	stage TEXT NOT NULL DEFAULT 'lead',
	priority TEXT NOT NULL DEFAULT 'medium',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	contact_id INTEGER REFERENCES contacts(id),
	deal_id INTEGER REFERENCES deals(id),
	due TEXT,
	completed INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	contact_id INTEGER REFERENCES contacts(id),
	deal_id INTEGER REFERENCES deals(id),
	type TEXT NOT NULL,
	direction TEXT,
	subject TEXT,
	body TEXT,
	message_id TEXT,
	occurred_at TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_type TEXT NOT NULL,
	from_id INTEGER NOT NULL,
	to_type TEXT NOT NULL,
	to_id INTEGER NOT NULL,
	relation TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_type, from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_type, to_id);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id INTEGER NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	processed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_processed ON events(processed);

CREATE TABLE IF NOT EXISTS event_hooks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schedules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_name TEXT NOT NULL UNIQUE,
	interval TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	last_run_at TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	schedule_id INTEGER NOT NULL REFERENCES schedules(id),
	agent_name TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL DEFAULT 'running',
	output TEXT,
	actions_proposed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action_type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	reasoning TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	resolved_at TEXT,
	agent_name TEXT,
	run_id TEXT,
	memory_id INTEGER,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_actions_status ON pending_actions(status);

CREATE TABLE IF NOT EXISTS agent_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_name TEXT NOT NULL,
	run_id TEXT NOT NULL,
	contact_id INTEGER,
	deal_id INTEGER,
	action_type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	reasoning TEXT,
	outcome TEXT NOT NULL DEFAULT 'pending',
	human_feedback TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_memory_agent ON agent_memory(agent_name);
CREATE INDEX IF NOT EXISTS idx_agent_memory_contact ON agent_memory(contact_id);
CREATE INDEX IF NOT EXISTS idx_agent_memory_deal ON agent_memory(deal_id);
CREATE INDEX IF NOT EXISTS idx_agent_memory_run ON agent_memory(run_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor TEXT NOT NULL,
	command TEXT NOT NULL,
	args TEXT,
	result TEXT,
	error TEXT,
	duration_ms INTEGER,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_actor ON audit_log(actor);
`

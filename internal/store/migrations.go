package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Status enums and rating ranges are enforced with CHECK constraints so a
// malformed entity can never be persisted; read paths never repair rows.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	assignee_id       TEXT NOT NULL,
	assigner_id       TEXT NOT NULL,
	priority          INTEGER NOT NULL DEFAULT 3 CHECK(priority BETWEEN 1 AND 5),
	due_date          DATETIME,
	status            TEXT NOT NULL DEFAULT 'not_started' CHECK(status IN (
		'not_started', 'in_progress', 'blocked', 'submitted',
		'under_review', 'rework_required', 'accepted', 'completed')),
	rework_count      INTEGER NOT NULL DEFAULT 0 CHECK(rework_count >= 0),
	quality_rating    INTEGER CHECK(quality_rating BETWEEN 1 AND 5),
	active_blocker_id TEXT,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS blockers (
	id                   TEXT PRIMARY KEY,
	task_id              TEXT NOT NULL REFERENCES tasks(id),
	reason               TEXT NOT NULL,
	created_by_id        TEXT NOT NULL,
	created_by_name      TEXT NOT NULL DEFAULT '',
	mentioned_helper_ids TEXT NOT NULL DEFAULT '[]',
	dependency_task_ids  TEXT NOT NULL DEFAULT '[]',
	resolved             INTEGER NOT NULL DEFAULT 0 CHECK(resolved IN (0, 1)),
	auto_resolved        INTEGER NOT NULL DEFAULT 0 CHECK(auto_resolved IN (0, 1)),
	resolved_by_id       TEXT,
	resolved_by_name     TEXT,
	resolved_at          DATETIME,
	created_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dependency_tasks (
	id                   TEXT PRIMARY KEY,
	parent_task_id       TEXT NOT NULL REFERENCES tasks(id),
	blocker_id           TEXT NOT NULL REFERENCES blockers(id),
	title                TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	assignee_id          TEXT NOT NULL,
	assignee_name        TEXT NOT NULL DEFAULT '',
	assigner_id          TEXT NOT NULL,
	assigner_name        TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'not_started' CHECK(status IN (
		'not_started', 'in_progress', 'completed')),
	due_date             DATETIME NOT NULL,
	submitted_for_review INTEGER NOT NULL DEFAULT 0 CHECK(submitted_for_review IN (0, 1)),
	accepted_by_id       TEXT,
	accepted_by_name     TEXT,
	accepted_at          DATETIME,
	rejected_by_id       TEXT,
	rejected_by_name     TEXT,
	rejected_at          DATETIME,
	rejection_reason     TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_entries (
	id          TEXT PRIMARY KEY,
	entity_kind TEXT NOT NULL CHECK(entity_kind IN ('task', 'dependency_task')),
	entity_id   TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	actor_id    TEXT NOT NULL,
	actor_name  TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL,
	UNIQUE(entity_kind, entity_id, seq)
);

CREATE TABLE IF NOT EXISTS rework_history (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id),
	rework_number INTEGER NOT NULL CHECK(rework_number >= 1),
	rejector_id   TEXT NOT NULL,
	rejector_name TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS progress_notes (
	id          TEXT PRIMARY KEY,
	entity_kind TEXT NOT NULL CHECK(entity_kind IN ('task', 'dependency_task')),
	entity_id   TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	UNIQUE(entity_kind, entity_id, seq)
);

CREATE TABLE IF NOT EXISTS feedback_entries (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL REFERENCES tasks(id),
	seq          INTEGER NOT NULL,
	manager_id   TEXT NOT NULL,
	manager_name TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	UNIQUE(task_id, seq)
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	type         TEXT NOT NULL,
	message      TEXT NOT NULL,
	metadata     TEXT NOT NULL DEFAULT '{}',
	read         INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
CREATE INDEX IF NOT EXISTS idx_tasks_assigner ON tasks(assigner_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_blockers_task_id ON blockers(task_id);
CREATE INDEX IF NOT EXISTS idx_dependency_tasks_blocker ON dependency_tasks(blocker_id);
CREATE INDEX IF NOT EXISTS idx_dependency_tasks_assignee ON dependency_tasks(assignee_id);
CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity_entries(entity_kind, entity_id);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_rework_history_task ON rework_history(task_id);
CREATE INDEX IF NOT EXISTS idx_progress_notes_entity ON progress_notes(entity_kind, entity_id);
CREATE INDEX IF NOT EXISTS idx_dependency_tasks_parent ON dependency_tasks(parent_task_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

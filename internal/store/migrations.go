package store

// migration is one schema step; sql may hold several statements and must
// record its own version in schema_version.
type migration struct {
	version int
	sql     string
}

// migrations are applied in order; versions count up from 1.
//
// Parent references are plain columns: the planner verifies ownership of
// every ancestor it touches, and cascading deletes run in Go.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	target_role TEXT,
	notes       TEXT,
	status      TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'archived')),
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS milestones (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	goal_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT,
	target_date  DATETIME,
	status       TEXT NOT NULL DEFAULT 'todo' CHECK(status IN ('todo', 'doing', 'done')),
	completed_at DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	milestone_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	notes        TEXT,
	due_date     DATETIME,
	status       TEXT NOT NULL DEFAULT 'todo' CHECK(status IN ('todo', 'doing', 'done')),
	completed_at DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_goals_user_status ON goals(user_id, status);
CREATE INDEX IF NOT EXISTS idx_goals_user_updated ON goals(user_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_milestones_user_goal ON milestones(user_id, goal_id);
CREATE INDEX IF NOT EXISTS idx_milestones_user_status ON milestones(user_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_user_milestone ON tasks(user_id, milestone_id);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload    TEXT NOT NULL DEFAULT '{}',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dead_letters_created ON dead_letters(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

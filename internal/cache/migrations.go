package cache

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations must be ordered with versions sequential from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	source     TEXT NOT NULL,
	id         TEXT NOT NULL,
	headers    TEXT NOT NULL DEFAULT '{}',
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (source, id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

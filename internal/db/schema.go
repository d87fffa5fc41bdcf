package db

const schemaSQL = `
-- ===========================================================================
-- CHANGES (device value changes and commands issued by the bridge)
-- ===========================================================================

CREATE TABLE IF NOT EXISTS changes (
  change_id TEXT PRIMARY KEY,
  timestamp TEXT NOT NULL,
  node TEXT NOT NULL,
  operation TEXT,
  value TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL DEFAULT '',
  label TEXT,
  source TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'OK',
  message TEXT
);

CREATE INDEX IF NOT EXISTS idx_changes_timestamp ON changes(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_changes_node ON changes(node, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_changes_source ON changes(source);
`

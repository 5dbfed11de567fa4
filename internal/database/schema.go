package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv_records (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (namespace, key)
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id            TEXT PRIMARY KEY,
		advertiser_id TEXT NOT NULL,
		name          TEXT NOT NULL,
		category      TEXT,
		status        TEXT NOT NULL DEFAULT 'draft',
		target_url    TEXT,
		start_date    TIMESTAMPTZ,
		end_date      TIMESTAMPTZ,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS campaign_media (
		id               TEXT NOT NULL,
		campaign_id      TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		media_type       TEXT NOT NULL,
		url              TEXT NOT NULL,
		size_bytes       BIGINT NOT NULL DEFAULT 0,
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		position         INT NOT NULL DEFAULT 0,
		uploaded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (campaign_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS custom_content (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		content_type TEXT NOT NULL,
		title        TEXT NOT NULL,
		youtube_url  TEXT,
		youtube_id   TEXT,
		playlist_id  TEXT,
		media_id     TEXT,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status)`,
}

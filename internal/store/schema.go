package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	role          TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS login_activity (
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	timestamp  INTEGER NOT NULL,
	ip_address TEXT    NOT NULL,
	success    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_login_activity_user
	ON login_activity(user_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS devices (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	serial_number    TEXT    NOT NULL UNIQUE,
	name             TEXT    NOT NULL,
	type             TEXT    NOT NULL,
	location         TEXT    NOT NULL DEFAULT '',
	mac_address      TEXT    NOT NULL,
	firmware_version TEXT    NOT NULL,
	protocol         TEXT    NOT NULL DEFAULT 'MQTT',
	status           TEXT    NOT NULL,
	created_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS device_assignments (
	device_id INTEGER NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
	user_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (device_id, user_id)
);

CREATE TABLE IF NOT EXISTS alerts (
	id            TEXT    PRIMARY KEY,
	device_serial TEXT    NOT NULL,
	timestamp     INTEGER NOT NULL,
	metric        TEXT    NOT NULL,
	value         REAL    NOT NULL,
	threshold     REAL    NOT NULL,
	severity      TEXT    NOT NULL,
	message       TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_serial    ON alerts(device_serial);
`

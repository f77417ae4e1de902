// Package database provides SQLite connection management for the lifecycle
// event journal.
//
// It wraps database/sql with journal-appropriate defaults: a single
// connection (SQLite has one writer), WAL mode and busy timeout from
// configuration, restrictive file permissions and a startup ping.
//
// Schema management lives with the consumer (internal/audit ensures its
// own table at open); this package only hands out connections.
package database

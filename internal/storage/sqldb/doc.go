// Package sqldb provides the relational storage layer for TaskDeck. It opens
// SQLite or MySQL through sqlx, applies the embedded per-dialect migrations,
// seeds the demo account and exposes repositories for tasks, templates and
// users. Multi-statement writes run inside a single transaction.
package sqldb

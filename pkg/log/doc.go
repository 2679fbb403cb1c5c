/*
Package log provides structured logging for ruzudb using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance, init via log.Init()    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("bufferpool"|"wal"|"csv")  │          │
	│  │  - WithTableID(id) / WithTxID(id)           │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
	log.Info("database opened")

	walLog := log.WithComponent("wal")
	walLog.Debug().Uint64("tx_id", txID).Msg("append")

Logging in this repository is sparse: database.Open warns when it
migrates an older header, WAL replay logs one info line, and the CSV
reader warns when mmap fails and it falls back to a buffered read. The
buffer pool and checkpoint do not log.
*/
package log

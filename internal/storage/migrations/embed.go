// Package migrations embeds and applies the ledger schema migrations.
package migrations

import "embed"

// PostgresFS embeds the PostgreSQL schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the ClickHouse timeseries migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

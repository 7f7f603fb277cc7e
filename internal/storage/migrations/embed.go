package migrations

import "embed"

// PostgresFS holds the document-store schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the risk timeseries schema migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// Package all registers every export backend and the SQL Server driver.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "dataingest/internal/storage/mssql"
	_ "dataingest/internal/storage/postgres"
	_ "dataingest/internal/storage/sqlite"
)

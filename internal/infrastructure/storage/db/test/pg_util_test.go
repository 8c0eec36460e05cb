package db_test

import (
	"os"

	"github.com/agentcore/escrowd/internal/core/ports"
	postgresdb "github.com/agentcore/escrowd/internal/infrastructure/storage/db/pg"
)

const (
	pgAddrEnv          = "ESCROWD_TEST_PG_ADDR"
	migrationSourceURL = "file://../pg/migration"
)

// newPgRepoManager connects to the postgres instance whose url is set in
// ESCROWD_TEST_PG_ADDR. It returns nil if the variable is unset.
func newPgRepoManager() (ports.RepoManager, error) {
	addr := os.Getenv(pgAddrEnv)
	if len(addr) <= 0 {
		return nil, nil
	}
	return postgresdb.NewService(postgresdb.DbConfig{
		DataSourceURL:      addr,
		MigrationSourceURL: migrationSourceURL,
	})
}

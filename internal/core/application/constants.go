package application

const (
	DBInMemory = "inmemory"
	DBBadger   = "badger"
	DBPostgres = "postgres"
)

var (
	SupportedDBType = map[string]struct{}{
		DBInMemory: {},
		DBBadger:   {},
		DBPostgres: {},
	}
)

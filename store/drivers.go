package store

// Database drivers for the supported dialects. modernc.org/sqlite registers
// itself as "sqlite", lib/pq as "postgres" and go-sql-driver as "mysql",
// which are the dialect names.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

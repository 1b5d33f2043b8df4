package history

import (
	"database/sql"

	"github.com/HerbHall/livefeed/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create position history table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS position_history (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						position_id INTEGER NOT NULL,
						device_id INTEGER NOT NULL,
						fix_time INTEGER NOT NULL,
						latitude REAL NOT NULL,
						longitude REAL NOT NULL,
						altitude REAL NOT NULL DEFAULT 0,
						speed REAL NOT NULL DEFAULT 0,
						course REAL NOT NULL DEFAULT 0,
						valid INTEGER NOT NULL DEFAULT 0,
						address TEXT NOT NULL DEFAULT '',
						attributes TEXT NOT NULL DEFAULT '{}',
						recorded_at INTEGER NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_position_history_device_fix ON position_history(device_id, fix_time)`,
					`CREATE INDEX IF NOT EXISTS idx_position_history_recorded ON position_history(recorded_at)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

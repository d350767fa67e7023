package metadb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE video(
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			duration REAL NOT NULL,
			frame_rate REAL NOT NULL,
			num_frames INT NOT NULL,
			subset TEXT NOT NULL
		);
		CREATE UNIQUE INDEX idx_video_name ON video (name);

		CREATE TABLE instance(
			id INTEGER PRIMARY KEY,
			video_id INT NOT NULL,
			t_init INT NOT NULL,
			num_frames INT NOT NULL,
			label TEXT NOT NULL
		);
		CREATE INDEX idx_instance_video_id ON instance (video_id);
	`))

	return migs
}

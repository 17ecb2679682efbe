package app

import (
	"io/fs"

	"github.com/prperemyshlev/hrms-identity/migrations"
)

func migrationsFS() fs.FS {
	return migrations.FS
}

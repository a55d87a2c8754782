package main

import (
	"embed"
	"io/fs"
	"log"

	netchat "github.com/putto11262002/netchat/app"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		log.Fatalf("migrations fs: %v", err)
	}

	app := netchat.New(nil, nil, migrations)
	app.Start()
}

package main

import (
	"context"
	"fmt"

	"github.com/hugh/flow/internal/database"
)

type MigrateCmd struct {
	Up      MigrateUpCmd      `cmd:"" help:"Apply pending migrations"`
	Down    MigrateDownCmd    `cmd:"" help:"Roll back migrations"`
	Version MigrateVersionCmd `cmd:"" help:"Print the applied schema version"`
}

type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run(ctx context.Context, globals *Globals) error {
	_, db, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.MigrateUp(db); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}

type MigrateDownCmd struct {
	Steps int `help:"Number of migrations to roll back" default:"1"`
}

func (c *MigrateDownCmd) Run(ctx context.Context, globals *Globals) error {
	_, db, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.MigrateDown(db, c.Steps); err != nil {
		return err
	}
	fmt.Printf("rolled back %d migration(s)\n", c.Steps)
	return nil
}

type MigrateVersionCmd struct{}

func (c *MigrateVersionCmd) Run(ctx context.Context, globals *Globals) error {
	_, db, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	version, dirty, err := database.MigrationVersion(db)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Printf("version %d (dirty)\n", version)
		return nil
	}
	fmt.Printf("version %d\n", version)
	return nil
}

package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

var (
	version = "dev"
	cli     struct {
		Migrate MigrateCmd `cmd:"" help:"Manage the database schema"`
		Seed    SeedCmd    `cmd:"" help:"Create the reserved organization and a SUPER_ADMIN"`
		Queues  QueuesCmd  `cmd:"" help:"Show background queue depth"`
		Debug   bool       `help:"Enable debug logging."`
		Version kong.VersionFlag
	}
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("flowctl"),
		kong.Description("Administrative tasks for the flow API."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&Globals{Debug: cli.Debug})
	cmd.FatalIfErrorf(err)
}

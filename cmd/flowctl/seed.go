package main

import (
	"context"
	"fmt"

	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/orgs"
	"github.com/hugh/flow/internal/store"
)

type SeedCmd struct {
	Email     string `help:"SUPER_ADMIN e-mail" default:"admin@example.com" env:"ADMIN_EMAIL"`
	Password  string `help:"SUPER_ADMIN password" required:"" env:"ADMIN_PASSWORD"`
	FirstName string `help:"SUPER_ADMIN first name" default:"Admin" env:"ADMIN_FIRST_NAME"`
	LastName  string `help:"SUPER_ADMIN last name" env:"ADMIN_LAST_NAME"`
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, db, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := models.SetNode(cfg.Server.NodeID); err != nil {
		return err
	}

	res, err := orgs.Bootstrap(ctx, store.New(db), orgs.BootstrapInput{
		ReservedName: cfg.Org.ReservedName,
		Email:        c.Email,
		Password:     c.Password,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if res.CreatedOrg {
		fmt.Printf("created organization %q (%d)\n", res.Organization.Name, res.Organization.ID)
	} else {
		fmt.Printf("organization %q already exists (%d)\n", res.Organization.Name, res.Organization.ID)
	}
	if res.CreatedAdmin {
		fmt.Printf("created SUPER_ADMIN %s\n", res.Admin.Email)
	} else {
		fmt.Printf("SUPER_ADMIN %s already exists\n", res.Admin.Email)
	}
	return nil
}

package main

import (
	"fmt"
	"io"

	"atomvideo/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCmd(conn func() *gorm.DB) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect SQL migrations",
	}

	migrator := func() (*database.Migrator, error) {
		migrations, err := database.EmbeddedMigrations()
		if err != nil {
			return nil, err
		}
		return database.NewMigrator(conn(), migrations), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			n, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			m, err := migrator()
			if err != nil {
				return err
			}
			n, err := m.Down(cmd.Context(), steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", n)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			states, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), states)
			return nil
		},
	})

	return cmd
}

func printStatus(w io.Writer, states []database.MigrationState) {
	pending := 0
	for _, st := range states {
		mark := "applied"
		if !st.Applied {
			mark = "pending"
			pending++
		}
		fmt.Fprintf(w, "%06d_%s\t%s\n", st.Version, st.Name, mark)
	}
	fmt.Fprintf(w, "%d migration(s), %d pending\n", len(states), pending)
}

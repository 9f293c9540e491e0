// Command atomctl runs schema migrations and account administration.
package main

import (
	"log"

	"atomvideo/internal/config"
	"atomvideo/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db *gorm.DB

	rootCmd = &cobra.Command{
		Use:          "atomctl",
		Short:        "Operate an Atom Video deployment",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			db, err = database.Open(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if db != nil {
				_ = database.Close(db)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(newMigrateCmd(func() *gorm.DB { return db }))
	rootCmd.AddCommand(newAdminCmd(func() *gorm.DB { return db }))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("atomctl: %v", err)
	}
}

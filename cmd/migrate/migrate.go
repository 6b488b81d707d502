package migrate

import (
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"katalog/internal/app"
	"katalog/internal/database"
)

const configFlag = "config"

var migrateFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a YAML config file",
	},
}

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Bring the database schema up to date.

Postgres runs the embedded goose migrations. MySQL and SQLite are migrated
from the GORM models. Run "katalog seed" afterwards to insert the default
units and reference rows.`,
		RunE: migrateCommand,
	}
	cobraflags.RegisterMap(cmd, migrateFlags)
	return cmd
}

func migrateCommand(_ *cobra.Command, _ []string) error {
	rt, err := app.Open(migrateFlags[configFlag].GetString())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := database.Migrate(rt.DB, rt.Config.Database.Driver); err != nil {
		return err
	}
	rt.Log.Info("schema is up to date", "driver", rt.Config.Database.Driver)
	return nil
}

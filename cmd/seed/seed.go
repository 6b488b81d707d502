package seed

import (
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"katalog/internal/app"
	"katalog/internal/database"
)

const configFlag = "config"

var seedFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a YAML config file",
	},
}

func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert default units, categories, brand and store",
		RunE:  seedCommand,
	}
	cobraflags.RegisterMap(cmd, seedFlags)
	return cmd
}

func seedCommand(cmd *cobra.Command, _ []string) error {
	rt, err := app.Open(seedFlags[configFlag].GetString())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := database.Seed(cmd.Context(), rt.DB); err != nil {
		return err
	}
	rt.Log.Info("reference data seeded")
	return nil
}

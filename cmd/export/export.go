package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"katalog/internal/app"
	"katalog/internal/repositories"
)

const (
	configFlag = "config"
	outFlag    = "out"
	searchFlag = "search"
	statusFlag = "status"
)

var exportFlags = map[string]cobraflags.Flag{
	configFlag: &cobraflags.StringFlag{
		Name:  configFlag,
		Value: "",
		Usage: "Path to a YAML config file",
	},
	outFlag: &cobraflags.StringFlag{
		Name:  outFlag,
		Value: "products.xlsx",
		Usage: "Workbook to write",
	},
	searchFlag: &cobraflags.StringFlag{
		Name:  searchFlag,
		Value: "",
		Usage: "Only export products whose name, slug or SKU contains this text",
	},
	statusFlag: &cobraflags.StringFlag{
		Name:  statusFlag,
		Value: "",
		Usage: "Only export active or inactive products (active, inactive)",
	},
}

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the product catalog to an xlsx workbook",
		RunE:  exportCommand,
	}
	cobraflags.RegisterMap(cmd, exportFlags)
	return cmd
}

func exportCommand(cmd *cobra.Command, _ []string) error {
	var filter repositories.ProductFilter
	filter.Search = strings.TrimSpace(exportFlags[searchFlag].GetString())
	switch status := exportFlags[statusFlag].GetString(); status {
	case "":
	case "active", "inactive":
		active := status == "active"
		filter.IsActive = &active
	default:
		return fmt.Errorf("invalid status %q, expected active or inactive", status)
	}

	rt, err := app.Open(exportFlags[configFlag].GetString())
	if err != nil {
		return err
	}
	defer rt.Close()

	path := exportFlags[outFlag].GetString()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	n, err := rt.Services().Export.Export(cmd.Context(), filter, f)
	if err != nil {
		return err
	}
	rt.Log.Info("products exported", "rows", n, "file", path)
	return nil
}

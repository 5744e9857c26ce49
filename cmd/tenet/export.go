package tenet

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/types"
)

var (
	exportScope string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export facts to a parquet file",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportScope, "scope", "", "scope to export: project, global or all (default)")
	exportCmd.Flags().StringVar(&exportOut, "out", "facts.parquet", "output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	sc := types.Scope(exportScope)
	if exportScope != "" && !sc.Valid() {
		return fmt.Errorf("scope must be project, global or all")
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.Export(cmd.Context(), exportOut, sc)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d facts to %s\n", n, exportOut)
	return nil
}

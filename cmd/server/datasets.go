package main

import (
	"fmt"
	"safe-route-service/internal/ports"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets [name]",
	Short: "List crime datasets, or show one dataset's summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		conn, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		provider := newCrimeProvider(cfg, conn)
		if len(args) == 1 {
			return printDatasetInfo(cmd, provider, args[0])
		}

		ids, err := provider.ListDatasets(ctx)
		if err != nil {
			return eris.Wrap(err, "datasets")
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func printDatasetInfo(cmd *cobra.Command, provider ports.CrimeDatasetProvider, name string) error {
	info, err := provider.DatasetInfo(cmd.Context(), name)
	if err != nil {
		return eris.Wrapf(err, "dataset %q", name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\trecords=%d\tweight_min=%g\tweight_max=%g\n",
		name, info.Count, info.WeightMin, info.WeightMax)
	return nil
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/export"
)

var (
	exportBucket string
	exportPrefix string
	exportList   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <connection> [schema]",
	Short: "Upload the diagram bundle to S3",
	Long: `Write snapshot.yaml, diagram.mmd and layout.json for a schema to
s3://<bucket>/<prefix>/<connection>/<schema>/. Credentials come from the
default AWS chain, optionally narrowed by export.profile.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())

		exp, err := eng.NewExporter(ctx, exportBucket)
		if err != nil {
			return err
		}
		id, err := exp.VerifyCredentials(ctx)
		if err != nil {
			return err
		}
		eng.Logger.Info("exporting as", "account", id.Account, "arn", id.ARN)

		keys, err := eng.Export(ctx, args[0], schemaArg(args, 1), exp, exportPrefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Printf("s3://%s/%s\n", exp.Bucket(), k)
		}

		if exportList {
			s, _ := eng.Diagram(ctx, args[0], schemaArg(args, 1))
			prefix := exportPrefix
			if prefix == "" {
				prefix = eng.Config.Export.Prefix
			}
			stored, err := exp.List(ctx, export.Prefix(prefix, s.ConnectionID(), s.Schema()))
			if err != nil {
				return err
			}
			fmt.Printf("\n%d object(s) stored under this prefix\n", len(stored))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "S3 bucket (default: export.bucket)")
	exportCmd.Flags().StringVar(&exportPrefix, "prefix", "", "key prefix (default: export.prefix)")
	exportCmd.Flags().BoolVar(&exportList, "list", false, "list the objects stored under the prefix afterwards")
	rootCmd.AddCommand(exportCmd)
}

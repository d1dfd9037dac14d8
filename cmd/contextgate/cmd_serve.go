package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contextgate/internal/app"
	"contextgate/internal/dashboard"
	"contextgate/logger"
)

var exportDir, exportCompression string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write both journals as Parquet files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			files, err := a.Export(ctx, exportDir, exportCompression)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(files)
			}
			fmt.Fprintln(stdout, files.Contexts)
			fmt.Fprintln(stdout, files.Trades)
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and /metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			srv, err := dashboard.NewServer(a.Config().Dashboard, a, logger.GetLogger())
			if err != nil {
				return err
			}
			if srv == nil {
				return errors.New("dashboard disabled in configuration")
			}
			return srv.Run(ctx)
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "out", "exports", "Output directory")
	exportCmd.Flags().StringVar(&exportCompression, "compression", "snappy", "snappy, gzip or none")
	rootCmd.AddCommand(exportCmd, serveCmd)
}

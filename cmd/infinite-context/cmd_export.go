package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Elizarfish/infinite-context/internal/bootstrap"
	"github.com/Elizarfish/infinite-context/internal/store"
)

var (
	exportProject string
	exportFormat  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored memories as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := bootstrap.Open()
		if err != nil {
			return err
		}
		defer sess.Close()

		memories, err := sess.Store.List(store.ListQuery{
			Project: exportProject,
			Sort:    "id",
			Order:   "asc",
			Limit:   200,
		})
		if err != nil {
			return fmt.Errorf("list memories: %w", err)
		}

		switch exportFormat {
		case "yaml":
			encoder := yaml.NewEncoder(os.Stdout)
			defer encoder.Close()
			return encoder.Encode(memories)
		case "json", "":
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(memories)
		default:
			return fmt.Errorf("unsupported export format %q (want json or yaml)", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportProject, "project", "", "Restrict export to this project")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or yaml")
}

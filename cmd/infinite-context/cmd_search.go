package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Elizarfish/infinite-context/internal/bootstrap"
)

var searchProject string

// searchCmd implements `search <keywords> [--project <path>]`.
// cobra's own flag parser already removes --project and its value from
// args before RunE sees them, so the remaining positionals are joined
// as the search keywords with no extra stripping needed here.
var searchCmd = &cobra.Command{
	Use:   "search <keywords>",
	Short: "Full-text search stored memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := bootstrap.Open()
		if err != nil {
			return err
		}
		defer sess.Close()

		query := strings.Join(args, " ")
		results, err := sess.Store.Search(query, searchProject, sess.Config.MaxPromptRecallResults)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, m := range results {
			fmt.Printf("[%d] (%s, score %.2f) %s\n", m.ID, m.Category, m.Score, m.Content)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "Restrict results to this project")
}

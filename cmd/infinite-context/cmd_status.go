package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Elizarfish/infinite-context/internal/bootstrap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store totals, project counts, and config path",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := bootstrap.Open()
		if err != nil {
			return err
		}
		defer sess.Close()

		stats, err := sess.Store.GetStats("")
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		projects, err := sess.Store.ListProjects()
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		sessions, err := sess.Store.AllSessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		fmt.Printf("total memories: %d\n", stats.Total)
		fmt.Printf("average score:  %.3f\n", stats.AverageScore)
		fmt.Printf("projects:       %d\n", len(projects))
		fmt.Printf("sessions:       %d\n", len(sessions))
		fmt.Println("by category:")
		for cat, n := range stats.CategoryCounts {
			fmt.Printf("  %-12s %d\n", cat, n)
		}
		return nil
	},
}

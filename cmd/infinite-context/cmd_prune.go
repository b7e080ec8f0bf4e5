package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Elizarfish/infinite-context/internal/bootstrap"
)

var (
	pruneOlderThanDays int
	pruneBelowScore    float64
	pruneDryRun        bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove low-value memories by age, score, or the default decay+prune pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := bootstrap.Open()
		if err != nil {
			return err
		}
		defer sess.Close()

		switch {
		case pruneOlderThanDays > 0:
			if pruneDryRun {
				count, err := sess.Store.CountOld(pruneOlderThanDays)
				if err != nil {
					return fmt.Errorf("count old: %w", err)
				}
				fmt.Printf("would prune %d memories older than %d days\n", count, pruneOlderThanDays)
				return nil
			}
			count, err := sess.Store.PruneOld(pruneOlderThanDays)
			if err != nil {
				return fmt.Errorf("prune old: %w", err)
			}
			fmt.Printf("pruned %d memories older than %d days\n", count, pruneOlderThanDays)

		case cmd.Flags().Changed("below-score"):
			if pruneDryRun {
				count, err := sess.Store.CountBelowScore(pruneBelowScore)
				if err != nil {
					return fmt.Errorf("count below score: %w", err)
				}
				fmt.Printf("would prune %d memories below score %.3f\n", count, pruneBelowScore)
				return nil
			}
			count, err := sess.Store.PruneBelowScore(pruneBelowScore)
			if err != nil {
				return fmt.Errorf("prune below score: %w", err)
			}
			fmt.Printf("pruned %d memories below score %.3f\n", count, pruneBelowScore)

		default:
			if pruneDryRun {
				fmt.Println("dry-run requires --older-than or --below-score")
				return nil
			}
			count, err := sess.Store.DecayAndPrune(sess.Config.DecayFactor, sess.Config.ScoreFloor, sess.Config.DecayIntervalDays, sess.Config.PruneThreshold)
			if err != nil {
				return fmt.Errorf("decay and prune: %w", err)
			}
			fmt.Printf("pruned %d memories after decay\n", count)
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneOlderThanDays, "older-than", 0, "Prune never-touched memories older than N days")
	pruneCmd.Flags().Float64Var(&pruneBelowScore, "below-score", 0, "Prune memories with score below this threshold")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report the count that would be pruned without deleting")
}

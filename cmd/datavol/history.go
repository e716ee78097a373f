package main

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past data migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.mgr.History()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No migrations recorded")
			return nil
		}

		for _, r := range records {
			status := "✓"
			if !r.Succeeded {
				status = "✗"
			}
			fmt.Printf("%s %s  %s\n", status, r.StartedAt.Format("2006-01-02 15:04:05"), r.ID)
			fmt.Printf("  From: %s\n", r.Source)
			fmt.Printf("  To: %s\n", r.Destination)
			fmt.Printf("  Files: %d (%s) in %s\n", r.Files, units.HumanSize(float64(r.Bytes)),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
			if r.Error != "" {
				fmt.Printf("  Error: %s\n", r.Error)
			}
		}
		return nil
	},
}

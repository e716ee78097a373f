package main

import (
	"fmt"
	"strconv"

	"github.com/cuemby/datavol/pkg/types"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the usable storage volumes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snapshot, err := a.scan()
		if err != nil {
			return err
		}

		printSnapshot(snapshot)
		if !snapshot.HasCurrent() {
			configured, _ := a.engine.ConfiguredPath()
			if configured != "" {
				fmt.Printf("\nConfigured path %s is not on any available volume\n", configured)
			}
		}
		return nil
	},
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Print the volume the data should be read from",
	Long: `Print the volume the data should be read from: the configured volume when
it holds data, else the first volume that does, else the volume with the most
free space. With --commit the result becomes the configured path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		commit, _ := cmd.Flags().GetBool("commit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.scan(); err != nil {
			return err
		}
		path, err := a.mgr.FindDataVolume()
		if err != nil {
			return err
		}
		fmt.Println(path)

		if commit {
			if err := a.engine.SetConfiguredPath(path); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	locateCmd.Flags().Bool("commit", false, "Store the located path as the configured path")
}

func printSnapshot(s types.Snapshot) {
	fmt.Printf("%-3s %-2s %-10s %-20s %10s %10s  %s\n", "#", "", "KIND", "LABEL", "FREE", "TOTAL", "PATH")
	for i, v := range s.Volumes {
		mark := ""
		if v.Current {
			mark = "*"
		}
		label := v.Label
		if v.ReadOnly {
			label += " (ro)"
		}
		fmt.Printf("%-3s %-2s %-10s %-20s %10s %10s  %s\n",
			strconv.Itoa(i), mark, v.Kind, label,
			units.HumanSize(float64(v.FreeBytes)), units.HumanSize(float64(v.TotalBytes)), v.Path)
	}
}

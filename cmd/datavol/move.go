package main

import (
	"fmt"
	"strconv"

	"github.com/cuemby/datavol/pkg/fsutil"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move the data to another volume",
	Long: `Move the data from the configured volume to another one.

--to takes either a volume index as printed by 'datavol scan' or a directory.
An index is checked first: the target must differ from the current volume,
be writable and have room for the data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snapshot, err := a.scan()
		if err != nil {
			return err
		}

		size, err := a.mgr.DataSize()
		if err == nil {
			fmt.Printf("Data size: %s\n", units.HumanSize(float64(size)))
		}

		if index, convErr := strconv.Atoi(to); convErr == nil {
			results, err := a.mgr.Relocate(snapshot, index)
			if err != nil {
				return err
			}
			fmt.Printf("Moving data to %s...\n", snapshot.Volumes[index].Path)

			res := <-results
			if res.Err != nil {
				return fmt.Errorf("move failed: %w", res.Err)
			}
			fmt.Println("✓ Data moved")
			printSnapshot(res.Snapshot)
			return nil
		}

		from, err := a.engine.ConfiguredPath()
		if err != nil {
			return err
		}
		if from == "" {
			return fmt.Errorf("no configured data path, run 'datavol locate --commit' first")
		}
		dest, err := fsutil.Canonicalize(to)
		if err != nil {
			return err
		}

		fmt.Printf("Moving data from %s to %s...\n", from, dest)
		if err := a.mgr.Move(dest, from); err != nil {
			return fmt.Errorf("move failed: %w", err)
		}
		fmt.Println("✓ Data moved")
		return nil
	},
}

func init() {
	moveCmd.Flags().String("to", "", "Destination volume index or directory")
	moveCmd.MarkFlagRequired("to")
}

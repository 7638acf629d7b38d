package arg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/GetUp/internal/ipc"
)

var snoozeCmd = &cobra.Command{
	Use:     "snooze",
	Aliases: []string{"s"},
	Short:   "Silence the ringing alarm for a short while",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			until, err := c.Snooze(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Snoozing, the alarm rings again %s\n", humanize.Time(until))
			return nil
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "End a snooze early",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			return c.Foreground(ctx)
		})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <percent>",
	Short: "Set the alarm volume (0-100)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pct, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[0], err)
		}
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			if err := c.SetVolume(ctx, pct); err != nil {
				return err
			}
			fmt.Printf("Alarm volume set to %s%%\n", humanize.Ftoa(pct))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(snoozeCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(volumeCmd)
}

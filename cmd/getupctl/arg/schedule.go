package arg

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/GetUp/internal/ipc"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule <HH:MM>",
	Aliases: []string{"set"},
	Short:   "Arm the alarm for the next occurrence of a time of day",
	Example: "  getupctl schedule 06:45",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			fireAt, err := c.Schedule(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Alarm set for %s (%s)\n",
				color.GreenString(fireAt.Format("Mon 15:04")), humanize.Time(fireAt))
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:     "cancel",
	Aliases: []string{"off"},
	Short:   "Disarm the alarm",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			if err := c.Cancel(ctx); err != nil {
				return err
			}
			fmt.Println("Alarm is off")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(cancelCmd)
}

package arg

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/SoarinFerret/GetUp/internal/ipc"
)

var (
	bus     string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "getupctl",
	Short: "getupctl is the command line tool for the GetUp alarm",
	Long: `getupctl talks to the getupd daemon over D-Bus.
You can use it to schedule the alarm, read the deactivation code,
snooze and silence a ringing alarm, and more.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&bus, "bus", "session", "bus the daemon listens on (session or system)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "D-Bus call timeout")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), describe(err))
		os.Exit(1)
	}
}

// withClient connects to the daemon and calls fn with a bounded context.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *ipc.Client) error) error {
	conn, err := ipc.Connect(bus)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, ipc.NewClient(conn))
}

// describe turns service errors into a user-facing line.
func describe(err error) string {
	switch {
	case ipc.IsCode(err, string(alarm.ErrNotFiring)):
		return "no alarm is ringing"
	case ipc.IsCode(err, string(alarm.ErrSnoozeLimitReached)):
		return "snooze limit reached, enter the code to stop the alarm"
	case ipc.IsCode(err, string(alarm.ErrTimerRegistrationFailed)):
		return "could not arm the alarm timer: " + err.Error()
	case ipc.IsCode(err, string(alarm.ErrStoreWriteFailed)):
		return "the change is active but could not be saved: " + err.Error()
	}
	return err.Error()
}

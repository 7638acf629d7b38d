package arg

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/GetUp/internal/alarm"
	"github.com/SoarinFerret/GetUp/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the alarm schedule and any ringing session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(os.Stdout, st, time.Now())
			return nil
		})
	},
}

func printStatus(w io.Writer, st alarm.Status, now time.Time) {
	bold := color.New(color.Bold).SprintFunc()

	if st.Schedule.Active {
		fmt.Fprintf(w, "Alarm:    %s, next %s (%s)\n", bold(st.TimeOfDay),
			st.Schedule.FireAt.Format("Mon Jan 2 15:04"), humanize.RelTime(st.Schedule.FireAt, now, "ago", "from now"))
	} else {
		fmt.Fprintf(w, "Alarm:    %s\n", color.YellowString("off"))
	}

	switch st.State {
	case alarm.StateFiring:
		fmt.Fprintf(w, "State:    %s since %s\n", color.RedString("ringing"), st.StartedAt.Format("15:04:05"))
	case alarm.StateSnoozing:
		fmt.Fprintf(w, "State:    %s until %s (%s)\n", color.CyanString("snoozing"),
			st.SnoozeDeadline.Format("15:04:05"), humanize.RelTime(st.SnoozeDeadline, now, "ago", "from now"))
	default:
		fmt.Fprintf(w, "State:    %s\n", "idle")
	}

	if st.SessionID != "" {
		limit := "unlimited"
		if st.SnoozeLimit > 0 {
			limit = fmt.Sprint(st.SnoozeLimit)
		}
		fmt.Fprintf(w, "Snoozes:  %d of %s\n", st.SnoozeCount, limit)
		fmt.Fprintf(w, "Session:  %s\n", st.SessionID)
	}
	if !st.Persisted {
		fmt.Fprintf(w, "%s the schedule is not saved yet\n", color.YellowString("Warning:"))
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print alarm events as they happen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := ipc.Connect(bus)
		if err != nil {
			return err
		}
		defer conn.Close()

		events, err := ipc.NewClient(conn).Events(cmd.Context())
		if err != nil {
			return err
		}
		for e := range events {
			printEvent(os.Stdout, e)
		}
		return nil
	},
}

func printEvent(w io.Writer, e ipc.Event) {
	ts := e.At.Format("15:04:05")
	switch e.Kind {
	case alarm.EventAlarmFired:
		fmt.Fprintf(w, "%s %s\n", ts, color.RedString("alarm ringing"))
	case alarm.EventSnoozeStarted:
		fmt.Fprintf(w, "%s %s until %s\n", ts, color.CyanString("snoozed"), e.SnoozeDeadline.Format("15:04:05"))
	case alarm.EventSnoozeEnded:
		fmt.Fprintf(w, "%s %s\n", ts, color.RedString("snooze over"))
	case alarm.EventAlarmDeactivated:
		fmt.Fprintf(w, "%s %s\n", ts, color.GreenString("alarm stopped"))
	default:
		fmt.Fprintf(w, "%s %s\n", ts, e.Kind)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

package arg

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SoarinFerret/GetUp/internal/autostart"
)

var daemonPath string

var autostartCmd = &cobra.Command{
	Use:       "autostart <enable|disable|status>",
	Short:     "Start getupd automatically at login",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := autostart.New(daemonPath, nil, nil)
		if err != nil {
			return err
		}
		switch args[0] {
		case "enable":
			err = entry.Set(true)
		case "disable":
			err = entry.Set(false)
		case "status":
		default:
			return fmt.Errorf("unknown action %q", args[0])
		}
		if err != nil {
			return err
		}
		if entry.IsEnabled() {
			fmt.Println("Autostart is enabled")
		} else {
			fmt.Println("Autostart is disabled")
		}
		return nil
	},
}

func init() {
	autostartCmd.Flags().StringVar(&daemonPath, "daemon", "", "path to getupd (default: next to getupctl)")
	rootCmd.AddCommand(autostartCmd)
}

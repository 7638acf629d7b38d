package arg

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/GetUp/internal/ipc"
)

var regenerate bool

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Show the code that stops the alarm",
	Long: `Show the deactivation code. Write it down somewhere away from the bed:
the ringing alarm only stops when the code is entered.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			var code string
			var err error
			if regenerate {
				code, err = c.RegenerateCode(ctx)
			} else {
				code, err = c.Code(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Println(color.New(color.Bold).Sprint(code))
			return nil
		})
	},
}

var deactivateCmd = &cobra.Command{
	Use:     "deactivate <code>",
	Aliases: []string{"stop"},
	Short:   "Stop the ringing alarm",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *ipc.Client) error {
			ok, err := c.AttemptDeactivate(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("incorrect code")
			}
			fmt.Println(color.GreenString("Alarm stopped. Good morning!"))
			return nil
		})
	},
}

func init() {
	codeCmd.Flags().BoolVarP(&regenerate, "regenerate", "r", false, "replace the code with a new random one")
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(deactivateCmd)
}

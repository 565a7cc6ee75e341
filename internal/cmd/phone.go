package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oasislearninghub/oasis/internal/core/phone"
)

var phoneDisplay bool

var phoneCmd = &cobra.Command{
	Use:   "phone",
	Short: "Phone number helpers",
}

var phoneMaskCmd = &cobra.Command{
	Use:   "mask <value>...",
	Short: "Mask phone input the way the enrollment form does",
	Long: `Strip every non-digit and keep at most ten digits.

With --display, complete numbers are printed as (555) 123-4567.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		masked := phone.Mask(strings.Join(args, " "))
		if phoneDisplay {
			masked = phone.Display(masked)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), masked)
		return err
	},
}

func init() {
	phoneMaskCmd.Flags().BoolVar(&phoneDisplay, "display", false, "format complete numbers for display")
	phoneCmd.AddCommand(phoneMaskCmd)
	rootCmd.AddCommand(phoneCmd)
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/store"
	errwrap "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/observability"
	"github.com/oasislearninghub/oasis/internal/output"
	"github.com/oasislearninghub/oasis/internal/session"
)

var enrollmentCmd = &cobra.Command{
	Use:   "enrollment",
	Short: "Look up, print and import enrollment records",
}

var enrollmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored enrollments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		enrollments, err := db.ListEnrollments(cmd.Context())
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatEnrollments(enrollments)
		if err != nil {
			return err
		}
		return writeRendered(cmd, format, "enrollments", rendered)
	},
}

var enrollmentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one enrollment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		enrollment, err := lookupEnrollment(cmd, args[0])
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatEnrollments([]core.Enrollment{*enrollment})
		if err != nil {
			return err
		}
		return writeRendered(cmd, format, "enrollment-"+enrollment.ID, rendered)
	},
}

var enrollmentReceiptCmd = &cobra.Command{
	Use:   "receipt <id>",
	Short: "Render a printable enrollment receipt",
	Long: `Render the receipt for one enrollment.

Use --output-format html to produce a page that can be opened and printed
from a browser.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		enrollment, err := lookupEnrollment(cmd, args[0])
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatReceipt(enrollment)
		if err != nil {
			return err
		}
		return writeRendered(cmd, format, "receipt-"+enrollment.ID, rendered)
	},
}

var enrollmentImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import enrollments from a YAML or JSON file",
	Long: `Import enrollments from a YAML or JSON file ("-" reads stdin).

The file holds either a list of enrollments or a mapping with an
"enrollments" list. Existing records with the same id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if path := strings.TrimSpace(args[0]); path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close() // nolint:errcheck // read-only
			in = f
		}

		enrollments, err := store.ParseEnrollments(in)
		if err != nil {
			return errwrap.WrapInvalidInput(cmd.Context(), err, "invalid enrollment file")
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Would import %d enrollment(s)\n", len(enrollments))
			return err
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		n, err := db.ImportEnrollments(cmd.Context(), enrollments)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "import failed")
		}
		observability.CLILogger.Debug("Imported enrollments", zap.Int("count", n), zap.String("driver", db.Driver()))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d enrollment(s)\n", n)
		return err
	},
}

// lookupEnrollment fails with "Enrollment not found" when id is unknown.
func lookupEnrollment(cmd *cobra.Command, id string) (*core.Enrollment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("enrollment id is required")
	}

	db, err := openConfiguredStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	enrollment, err := db.LookupEnrollment(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, errwrap.NewNotFoundError(session.NotFoundMessage)
	}
	return enrollment, nil
}

func init() {
	addOutputFlags(enrollmentListCmd, output.FormatTable)
	addOutputFlags(enrollmentShowCmd, output.FormatTable)
	addOutputFlags(enrollmentReceiptCmd, output.FormatTable)
	enrollmentImportCmd.Flags().Bool("dry-run", false, "Parse the file without writing")

	enrollmentCmd.AddCommand(enrollmentListCmd)
	enrollmentCmd.AddCommand(enrollmentShowCmd)
	enrollmentCmd.AddCommand(enrollmentReceiptCmd)
	enrollmentCmd.AddCommand(enrollmentImportCmd)
	rootCmd.AddCommand(enrollmentCmd)
}

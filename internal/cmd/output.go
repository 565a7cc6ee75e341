package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oasislearninghub/oasis/internal/output"
)

var extensions = map[output.Format]string{
	output.FormatJSON:     "json",
	output.FormatMarkdown: "md",
	output.FormatHTML:     "html",
}

func outputExtension(format output.Format) string {
	if ext, ok := extensions[format]; ok {
		return ext
	}
	return "txt"
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns a record name such as "receipt ENR-42" into
// "receipt-enr-42".
func sanitizeFilename(value string) string {
	clean := unsafeFilenameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if clean = strings.Trim(clean, "-."); clean == "" {
		return "output"
	}
	return clean
}

func addOutputFlags(cmd *cobra.Command, fallback output.Format) {
	cmd.Flags().String("output-format", string(fallback), "Output format: table|json|markdown|html")
	cmd.Flags().String("out", "", "Write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "Write output to a directory, one file per record")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// outputTarget resolves --out and --out-dir into a single file path. An
// empty path means the command's stdout.
func outputTarget(cmd *cobra.Command, format output.Format, name string) (string, error) {
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	case outDir != "":
		return filepath.Join(outDir, sanitizeFilename(name)+"."+outputExtension(format)), nil
	case outPath == "-":
		return "", nil
	default:
		return outPath, nil
	}
}

// writeRendered writes rendered output to its resolved target, creating
// parent directories as needed.
func writeRendered(cmd *cobra.Command, format output.Format, name, rendered string) error {
	path, err := outputTarget(cmd, format, name)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}

	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	_, err = io.WriteString(w, rendered)
	return err
}

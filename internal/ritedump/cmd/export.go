package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ritedump/internal/export"
)

func newExportCmd(r *runner) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the decoded image as JSON or CBOR",
		Long: `Export decodes an image and writes a document with its header, sections
and every record: pool, symbols, local names and rendered instructions.`,
		Example: `
# JSON to stdout
ritedump export app.mrb

# Canonical CBOR to a file
ritedump export --format cbor -o app.cbor app.mrb
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			formatName, _ := cmd.Flags().GetString("format")
			format, err := export.ParseFormat(formatName)
			if err != nil {
				r.fail(out, err)
				return nil
			}
			s, err := settings(cmd)
			if err != nil {
				r.fail(out, err)
				return nil
			}
			absPath, err := resolvePath(args[0])
			if err != nil {
				r.fail(out, err)
				return nil
			}
			l, err := load(absPath, s)
			if err != nil {
				r.fail(out, err)
				return nil
			}

			doc := export.Build(l.file)
			doc.Path, doc.Digest = l.path, l.digest

			var w io.Writer = out
			if output, _ := cmd.Flags().GetString("output"); output != "" {
				f, err := os.Create(output)
				if err != nil {
					r.fail(out, fmt.Errorf("create output: %w", err))
					return nil
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, doc, format); err != nil {
				r.fail(out, err)
			}
			return nil
		},
	}
	exportCmd.Flags().StringP("format", "f", "json", "Document format: json or cbor")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return exportCmd
}

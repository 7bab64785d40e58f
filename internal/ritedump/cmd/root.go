package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	pathpkg "path/filepath"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"ritedump/internal/config"
	"ritedump/internal/disasm"
	"ritedump/internal/imagex"
	"ritedump/internal/rite"
	"ritedump/internal/ritedump/log"
	"ritedump/internal/ui/colorize"
)

// runner carries the exit status of one invocation. Decode failures are
// reported on the text sink, so they must not also surface as cobra errors.
type runner struct {
	status int
}

// fail writes err to the text sink as an "Error: " line and marks the run failed.
func (r *runner) fail(w io.Writer, err error) {
	r.status = 1
	fmt.Fprintf(w, "Error: %v\n", err)
}

// loaded is a decoded image plus what the reports need from the file.
type loaded struct {
	path   string
	digest string
	sealed bool
	gzip   bool
	file   *rite.File
}

// load maps path, unseals it when a key is configured, and decodes it.
// The mapping is released before returning; File holds copies.
func load(path string, s *config.Config) (*loaded, error) {
	img, err := imagex.Open(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	if err := img.Unseal(s.XXTEA.Key, s.XXTEA.Signature); err != nil {
		return nil, err
	}

	f, err := rite.Decode(img.Data, s.DecodeOptions())
	if err != nil {
		slog.Debug("decode failed", "file", path, "kind", rite.KindOf(err), "error", err)
		return nil, err
	}
	slog.Debug("decoded",
		"file", path,
		"revision", f.Revision,
		"sections", len(f.Sections),
		"records", len(f.Records()),
		"checksum_ok", f.ChecksumOK())

	return &loaded{
		path:   path,
		digest: img.Digest(),
		sealed: img.Sealed,
		gzip:   img.Compressed,
		file:   f,
	}, nil
}

// settings loads the configuration file and applies flags the user set.
func settings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("strict") {
		s.StrictChecksum, _ = flags.GetBool("strict")
	}
	if flags.Changed("revision") {
		v, _ := flags.GetString("revision")
		rev, err := rite.ParseRevision(v)
		if err != nil {
			return nil, err
		}
		s.Revision = int(rev)
	}
	if flags.Changed("max-depth") {
		s.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("key") {
		s.XXTEA.Key, _ = flags.GetString("key")
	}
	if flags.Changed("signature") {
		s.XXTEA.Signature, _ = flags.GetString("signature")
	}

	// Dump-only flags; subcommands do not define them.
	if f := flags.Lookup("pool"); f != nil && f.Changed {
		s.ShowPool, _ = flags.GetBool("pool")
	}
	if f := flags.Lookup("symbols"); f != nil && f.Changed {
		s.ShowSymbols, _ = flags.GetBool("symbols")
	}
	if f := flags.Lookup("no-header"); f != nil && f.Changed {
		v, _ := flags.GetBool("no-header")
		s.ShowHeader = !v
	}
	if f := flags.Lookup("no-sections"); f != nil && f.Changed {
		v, _ := flags.GetBool("no-sections")
		s.ShowSections = !v
	}
	if f := flags.Lookup("no-lvar"); f != nil && f.Changed {
		v, _ := flags.GetBool("no-lvar")
		s.ShowLvar = !v
	}
	if f := flags.Lookup("parallel"); f != nil && f.Changed {
		s.Parallel, _ = flags.GetInt("parallel")
	}
	if f := flags.Lookup("color"); f != nil && f.Changed {
		s.Color, _ = flags.GetString("color")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// useColor decides whether the dump is highlighted: only when writing to a
// terminal in auto mode.
func useColor(w io.Writer, mode string) bool {
	if colorize.Disabled() {
		return false
	}
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func printOptions(s *config.Config) disasm.Options {
	return disasm.Options{
		Header:   s.ShowHeader,
		Sections: s.ShowSections,
		Lvar:     s.ShowLvar,
		Pool:     s.ShowPool,
		Symbols:  s.ShowSymbols,
		Parallel: s.Parallel,
	}
}

func dump(ctx context.Context, w io.Writer, l *loaded, s *config.Config) error {
	sink := &disasm.WriterSink{W: w}
	if useColor(w, s.Color) {
		sink.Colorize = colorize.Line
	}
	return disasm.NewPrinter(sink, printOptions(s)).Print(ctx, l.file)
}

func resolvePath(file string) (string, error) {
	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %v", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", file)
		}
		return "", fmt.Errorf("cannot access file: %v", err)
	}
	return absPath, nil
}

func newRootCmd() (*cobra.Command, *runner) {
	r := &runner{}
	rootCmd := &cobra.Command{
		Use:   "ritedump [file]",
		Short: "Disassemble RITE bytecode images",
		Long: `Ritedump decodes a RITE bytecode image (revision 0001 or 0002) and prints
its header, sections, local variable tables and a readable rendering of
every instruction record.`,
		Example: `
# Dump an image
ritedump app.mrb

# Include literal pools and symbol tables
ritedump --pool --symbols app.mrb

# Unseal an XXTEA-protected image first
ritedump --key MYKEY --signature XXTEA app.mrb

# Browse records interactively
ritedump -t app.mrb
  `,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			log.Setup(debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

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

			if tui, _ := cmd.Flags().GetBool("tui"); tui {
				program := tea.NewProgram(
					newModel(cmd.Context(), absPath, s),
					tea.WithAltScreen(),
					tea.WithContext(cmd.Context()),
				)
				if _, err := program.Run(); err != nil {
					slog.Error("TUI run error", "error", err)
					return fmt.Errorf("TUI error: %v", err)
				}
				return nil
			}

			l, err := load(absPath, s)
			if err != nil {
				r.fail(out, err)
				return nil
			}
			if err := dump(cmd.Context(), out, l, s); err != nil {
				r.fail(out, err)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file (default ./"+config.DefaultFile+" when present)")
	pf.BoolP("debug", "d", false, "Debug logging")
	pf.String("revision", "auto", "Container revision: auto, 1 or 2")
	pf.Bool("strict", false, "Reject images whose checksum or size field is wrong")
	pf.Int("max-depth", rite.DefaultMaxDepth, "Deepest record nesting accepted")
	pf.String("key", "", "XXTEA key for protected images")
	pf.String("signature", "", "Signature prefix stripped before XXTEA decryption")

	f := rootCmd.Flags()
	f.BoolP("tui", "t", false, "Browse records in an interactive TUI")
	f.Bool("pool", false, "List each record's literal pool")
	f.Bool("symbols", false, "List each record's symbol table")
	f.Bool("no-header", false, "Omit the container header")
	f.Bool("no-sections", false, "Omit section summaries")
	f.Bool("no-lvar", false, "Omit local variable tables")
	f.IntP("parallel", "p", 1, "Records rendered concurrently")
	f.String("color", "auto", "Highlight output: auto, always or never")

	rootCmd.AddCommand(newInfoCmd(r), newExportCmd(r), newSchemaCmd())
	return rootCmd, r
}

// Run executes ritedump with args, writing to stdout and stderr, and returns
// the process exit status.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd, r := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
	return r.status
}

func Execute() {
	status := execute()
	log.Close()
	os.Exit(status)
}

func execute() int {
	// Bypass fang when output is piped so its styled help and errors do not
	// end up in a dump.
	if !term.IsTerminal(os.Stdout.Fd()) {
		return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	}

	rootCmd, r := newRootCmd()
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return r.status
}

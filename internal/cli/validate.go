package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ambit/internal/audit"
	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/resolver"
	"github.com/roach88/ambit/internal/store"
)

// ValidateResult is the reportable outcome of a validate run.
type ValidateResult struct {
	Entry     string                  `json:"entry"`
	Functions int                     `json:"functions"`
	Kinds     []ir.Kind               `json:"kinds"`
	Shapes    map[string]string       `json:"shapes"`
	Events    []resolver.Event        `json:"events,omitempty"`
	Warnings  []resolver.CycleWarning `json:"warnings,omitempty"`
	AuditID   int64                   `json:"audit_id,omitempty"`
}

// NewValidateCommand creates the validate command: load declarations,
// resolve the call graph from the entry function, and report the
// resolved shapes and the decision trace.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var (
		entry  string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Resolve a declaration directory's capability requirements",
		Long: "Loads CUE declarations from a directory, registers the capability\n" +
			"kinds, builds the call graph and the root store, and resolves every\n" +
			"function's requirements before anything would execute. All five\n" +
			"failure classes surface here, at construction time.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:  opts.Format,
				Writer:  cmd.OutOrStdout(),
				Verbose: opts.Verbose,
			}
			return runValidate(cmd.Context(), formatter, args[0], entry, dbPath)
		},
	}

	cmd.Flags().StringVar(&entry, "entry", "", "entry function (overrides the manifest's entry)")
	cmd.Flags().StringVar(&dbPath, "db", "", "append the resolution trace to this audit database")

	return cmd
}

func runValidate(ctx context.Context, formatter *OutputFormatter, dir, entryOverride, dbPath string) error {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	slog.Debug("manifest loaded", "dir", dir, "files", manifest.FileCount,
		"kinds", len(manifest.Kinds), "functions", len(manifest.Funcs))

	prog, err := BuildProgram(manifest, store.UUIDv7Generator{})
	if err != nil {
		return reportLoadError(formatter, err)
	}

	entry := prog.Entry
	if entryOverride != "" {
		entry = entryOverride
	}
	if entry == "" {
		lerr := &LoadError{Code: ErrCodeGeneric, Message: "no entry function: declare entry in the manifest or pass --entry"}
		return reportLoadError(formatter, lerr)
	}

	res, err := resolver.Resolve(prog.Graph, prog.Registry, prog.Root, entry)
	if err != nil {
		if code := ir.CodeOf(err); code != "" {
			formatter.Error(string(code), err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		formatter.Error(ErrCodeResolution, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	result := &ValidateResult{
		Entry:     res.Entry,
		Functions: len(prog.Graph.Funcs()),
		Kinds:     prog.Registry.Kinds(),
		Shapes:    make(map[string]string, len(res.Shapes)),
		Warnings:  res.Warnings,
	}
	for name, shape := range res.Shapes {
		result.Shapes[name] = shape.String()
	}
	if formatter.Verbose {
		result.Events = res.Events
	}

	if dbPath != "" {
		log, err := audit.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening audit database", err)
		}
		defer log.Close()
		id, err := log.WriteResolution(ctx, prog.Registry.Kinds(), res)
		if err != nil {
			return WrapExitError(ExitCommandError, "writing audit record", err)
		}
		result.AuditID = id
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(renderValidateText(result))
}

// reportLoadError emits a load error through the formatter and maps it to
// the command-error exit code.
func reportLoadError(formatter *OutputFormatter, err error) error {
	if lerr, ok := err.(*LoadError); ok {
		formatter.Error(lerr.Code, lerr.Message, nil)
		return NewExitError(ExitCommandError, lerr.Message)
	}
	formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return NewExitError(ExitCommandError, err.Error())
}

// renderValidateText produces the human-readable summary.
func renderValidateText(result *ValidateResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolved %d function(s) from entry %s\n", result.Functions, result.Entry)

	fmt.Fprintf(&b, "\nkinds:\n")
	for _, kind := range result.Kinds {
		def := ""
		if kind.HasDefault {
			def = " (default)"
		}
		fmt.Fprintf(&b, "  [%d] %s: %s %s%s\n", kind.Slot, kind.Name, kind.Payload, kind.Visibility, def)
	}

	names := make([]string, 0, len(result.Shapes))
	for name := range result.Shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(&b, "\nshapes:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %s\n", name, result.Shapes[name])
	}

	for _, warn := range result.Warnings {
		fmt.Fprintf(&b, "\nwarning: %s\n", warn.Message)
	}
	for _, ev := range result.Events {
		fmt.Fprintf(&b, "%4d %-9s %-12s slot=%-2d %s\n", ev.Seq, ev.Kind, ev.Function, ev.Slot, ev.Detail)
	}
	if result.AuditID != 0 {
		fmt.Fprintf(&b, "\naudit record %d written\n", result.AuditID)
	}
	return strings.TrimRight(b.String(), "\n")
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ambit/internal/audit"
	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/resolver"
	"github.com/roach88/ambit/internal/store"
)

// TraceResult is the reportable outcome of a trace run.
type TraceResult struct {
	Resolutions []audit.ResolutionRecord `json:"resolutions,omitempty"`
	ID          int64                    `json:"id,omitempty"`
	Entry       string                   `json:"entry,omitempty"`
	Kinds       []ir.Kind                `json:"kinds,omitempty"`
	Events      []resolver.Event         `json:"events,omitempty"`
	Verified    bool                     `json:"verified,omitempty"`
	Divergence  *audit.Divergence        `json:"divergence,omitempty"`
}

// NewTraceCommand creates the trace command: inspect the audit log and
// optionally verify a stored trace against a fresh resolution of the
// same declarations.
func NewTraceCommand(opts *RootOptions) *cobra.Command {
	var (
		dbPath       string
		resolutionID int64
		list         bool
		verifyDir    string
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored resolution traces",
		Long: "Reads the audit database written by validate. Lists stored\n" +
			"resolutions, shows one trace event by event, or re-resolves a\n" +
			"declaration directory and checks the fresh trace against the\n" +
			"stored one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:  opts.Format,
				Writer:  cmd.OutOrStdout(),
				Verbose: opts.Verbose,
			}
			return runTrace(cmd.Context(), formatter, dbPath, resolutionID, list, verifyDir)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "audit database path (required)")
	cmd.Flags().Int64Var(&resolutionID, "id", 0, "resolution id (default: the latest)")
	cmd.Flags().BoolVar(&list, "list", false, "list stored resolutions instead of showing a trace")
	cmd.Flags().StringVar(&verifyDir, "verify", "", "re-resolve this declaration directory and compare against the stored trace")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(ctx context.Context, formatter *OutputFormatter, dbPath string, resolutionID int64, list bool, verifyDir string) error {
	log, err := audit.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening audit database", err)
	}
	defer log.Close()

	records, err := log.ReadResolutions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading resolutions", err)
	}
	if list {
		result := &TraceResult{Resolutions: records}
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		return formatter.Success(renderTraceList(result))
	}

	if len(records) == 0 {
		return NewExitError(ExitCommandError, "audit database holds no resolutions")
	}
	record := records[len(records)-1]
	if resolutionID != 0 {
		found := false
		for _, rec := range records {
			if rec.ID == resolutionID {
				record = rec
				found = true
				break
			}
		}
		if !found {
			return NewExitError(ExitCommandError, fmt.Sprintf("no resolution with id %d", resolutionID))
		}
	}

	result := &TraceResult{ID: record.ID, Entry: record.Entry}
	if result.Kinds, err = log.ReadKinds(ctx, record.ID); err != nil {
		return WrapExitError(ExitCommandError, "reading kinds", err)
	}
	if result.Events, err = log.ReadEvents(ctx, record.ID); err != nil {
		return WrapExitError(ExitCommandError, "reading events", err)
	}

	if verifyDir != "" {
		fresh, err := reResolve(verifyDir, record.Entry)
		if err != nil {
			return err
		}
		div, err := log.Verify(ctx, record.ID, fresh)
		if err != nil {
			return WrapExitError(ExitCommandError, "verifying trace", err)
		}
		result.Divergence = div
		result.Verified = div == nil
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	out := renderTraceText(result)
	if err := formatter.Success(out); err != nil {
		return err
	}
	if result.Divergence != nil {
		return NewExitError(ExitFailure, "stored trace diverges from fresh resolution")
	}
	return nil
}

// reResolve loads and resolves a declaration directory for verification.
// Scope identities are not part of the trace, so the generator choice
// does not affect the comparison.
func reResolve(dir, entry string) (*resolver.Resolution, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading declarations", err)
	}
	prog, err := BuildProgram(manifest, store.UUIDv7Generator{})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "building program", err)
	}
	res, err := resolver.Resolve(prog.Graph, prog.Registry, prog.Root, entry)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "re-resolving declarations", err)
	}
	return res, nil
}

func renderTraceList(result *TraceResult) string {
	if len(result.Resolutions) == 0 {
		return "no resolutions stored"
	}
	var b strings.Builder
	for _, rec := range result.Resolutions {
		fmt.Fprintf(&b, "%4d  %-20s %s\n", rec.ID, rec.Entry, rec.CreatedAt)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTraceText(result *TraceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolution %d, entry %s\n", result.ID, result.Entry)
	for _, kind := range result.Kinds {
		fmt.Fprintf(&b, "  [%d] %s: %s\n", kind.Slot, kind.Name, kind.Payload)
	}
	fmt.Fprintf(&b, "\n")
	for _, ev := range result.Events {
		fmt.Fprintf(&b, "%4d %-9s %-12s slot=%-2d %s\n", ev.Seq, ev.Kind, ev.Function, ev.Slot, ev.Detail)
	}
	if result.Divergence != nil {
		fmt.Fprintf(&b, "\ndivergence at seq %d:\n  stored: %s\n  fresh:  %s\n",
			result.Divergence.Seq, result.Divergence.Stored, result.Divergence.Fresh)
	} else if result.Verified {
		fmt.Fprintf(&b, "\ntrace verified: fresh resolution matches\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/basin-precip-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type gridCheck struct {
	total, inside int
	err           error
}

func newValidateCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the boundary file and every forecast grid without producing a series.",
		Long: `Parse the boundary and every discovered grid file and report PASS or FAIL
per phase. Exits non-zero when any phase fails, for use in CI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, s)
		},
	}
}

func runValidate(cmd *cobra.Command, s *settings) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "=== Basin Input Validation ===")
	fmt.Fprintln(out)

	boundaryPhase := &phase{name: "boundary file"}
	discoveryPhase := &phase{name: "forecast discovery"}
	gridPhase := &phase{name: "grid files"}
	phases := []*phase{boundaryPhase, discoveryPhase, gridPhase}

	boundary, err := filesystem.LoadBoundary(s.Boundary)
	if err != nil {
		boundaryPhase.errorf("%v", err)
	}

	var runs []domain.ForecastRun
	discoverer, err := filesystem.NewDiscoverer(s.ForecastDir, s.Pattern, s.DateLayout, s.logger())
	if err != nil {
		discoveryPhase.errorf("%v", err)
	} else {
		var warnings []filesystem.Warning
		runs, warnings, err = discoverer.Scan(ctx)
		switch {
		case err != nil:
			discoveryPhase.errorf("%v", err)
		case len(runs) == 0:
			discoveryPhase.errorf("no files in %s match %s", s.ForecastDir, s.Pattern)
		}
		for _, w := range warnings {
			discoveryPhase.errorf("%v", w)
		}
	}

	checks := make([]gridCheck, len(runs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)
	for i, run := range runs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			samples, err := filesystem.ReadGrid(run.SourcePath)
			if err != nil {
				checks[i] = gridCheck{err: err}
				return nil
			}
			checks[i] = gridCheck{total: len(samples)}
			if boundaryPhase.passed() {
				checks[i].inside = len(boundary.Clip(samples))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var parsed, points, inside int
	for _, c := range checks {
		if c.err != nil {
			gridPhase.errorf("%v", c.err)
			continue
		}
		parsed++
		points += c.total
		inside += c.inside
	}

	return report(out, phases, fmt.Sprintf("Runs: %d discovered, %d parsed, %d grid points, %d inside the boundary",
		len(runs), parsed, points, inside))
}

func report(out io.Writer, phases []*phase, summary string) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	allPassed := true
	for _, p := range phases {
		status := green("PASS")
		if !p.passed() {
			status = red(fmt.Sprintf("FAIL (%d errors)", len(p.errors)))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, summary)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return nil
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return errValidationFailed
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

// errValidation is returned when any phase fails; details are printed.
var errValidation = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	var settingsPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check settings and input files without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), settingsPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "correction settings YAML file")
	_ = cmd.MarkFlagRequired("settings")
	return cmd
}

func runValidate(ctx context.Context, settingsPath string, w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(settingsPath, cfg.DataDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Tide Correction Input Validation ===")
	fmt.Fprintln(w)

	inputs := &phase{name: "Input files"}
	table, tides := loadInputs(ctx, settings, inputs)
	phases := []*phase{inputs}
	if inputs.passed() {
		phases = append(phases,
			validateShorelines(table),
			validateSettings(settings, table),
			validateCoverage(table, tides),
		)
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-30s %s\n", p.name, status)
	}
	if inputs.passed() {
		start, end, _ := tides.Span()
		fmt.Fprintf(w, "\nRows: %d acquisitions, %d transects, %d tide samples (%s to %s)\n",
			table.Len(), len(table.Transects), tides.Len(),
			start.Format(csvfile.OutputTimeLayout), end.Format(csvfile.OutputTimeLayout))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  %d. %s\n", i+1, e)
		}
	}
	if !allPassed {
		return errValidation
	}
	return nil
}

func loadInputs(ctx context.Context, s config.Settings, p *phase) (domain.ShorelineTable, domain.Series[float64]) {
	if s.ShorelineCSV == "" {
		p.errorf("settings do not name shoreline_csv")
	}
	if s.TideData == "" {
		p.errorf("settings do not name tide_data")
	}
	if !p.passed() {
		return domain.ShorelineTable{}, domain.Series[float64]{}
	}

	table, err := csvfile.ShorelineFile{Path: s.ShorelineCSV, TimeColumn: s.TimeColumn}.LoadShoreline(ctx)
	if err != nil {
		p.errorf("%v", err)
	}
	tides, err := csvfile.TideFile{Path: s.TideData, TimeColumn: s.TideTimeColumn, ValueColumn: s.TideValueColumn}.LoadReference(ctx)
	if err != nil {
		p.errorf("%v", err)
	}
	return table, tides
}

func validateShorelines(table domain.ShorelineTable) *phase {
	p := &phase{name: "Shoreline table"}
	if table.Len() == 0 {
		p.errorf("no acquisitions")
	}
	for j, id := range table.Transects {
		finite := 0
		for _, v := range table.Positions[j] {
			if !math.IsNaN(v) {
				finite++
			}
		}
		if finite == 0 && table.Len() > 0 {
			p.errorf("transect %s has no positions", id)
		}
	}
	return p
}

func validateSettings(s config.Settings, table domain.ShorelineTable) *phase {
	p := &phase{name: "Correction settings"}
	if err := s.Correction().Validate(table); err != nil {
		p.errorf("%v", err)
	}
	return p
}

func validateCoverage(table domain.ShorelineTable, tides domain.Series[float64]) *phase {
	p := &phase{name: "Tide coverage"}
	if err := domain.CheckZoning(table.Zoning, tides.Zoning); err != nil {
		p.errorf("%v", err)
		return p
	}
	if _, err := domain.Resolve(table.Times, tides); err != nil {
		p.errorf("%v", err)
	}
	return p
}

// Command genmock writes a synthetic tide series, a matching shoreline CSV
// and a settings file for local runs and demos. Shoreline positions carry a
// known tide bias, so correcting them with the generated settings recovers
// the underlying shoreline. It runs the domain correction over the output
// and prints the recovery error as a self-check.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -days 365 -transects 5
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/shoreline-tide-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

var baseDate = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

// Principal lunar and solar semidiurnal constituents.
var constituents = []struct {
	amplitude float64 // m
	period    time.Duration
	phase     float64 // rad
}{
	{amplitude: 0.55, period: 12*time.Hour + 25*time.Minute + 14*time.Second, phase: 0.3},
	{amplitude: 0.15, period: 12 * time.Hour, phase: 1.1},
	{amplitude: 0.10, period: 23*time.Hour + 56*time.Minute + 4*time.Second, phase: 2.0},
}

type params struct {
	out       string
	days      int
	transects int
	interval  time.Duration
	revisit   time.Duration
	cloudy    float64
	seed      uint64
	contour   float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var p params
	flag.StringVar(&p.out, "out", "", "output directory")
	flag.IntVar(&p.days, "days", 365, "length of the tide series in days")
	flag.IntVar(&p.transects, "transects", 5, "number of transects")
	flag.DurationVar(&p.interval, "tide-interval", 15*time.Minute, "tide sampling interval")
	flag.DurationVar(&p.revisit, "revisit", 72*time.Hour, "mean time between acquisitions")
	flag.Float64Var(&p.cloudy, "cloudy", 0.15, "fraction of missing transect positions")
	flag.Uint64Var(&p.seed, "seed", 1, "random seed")
	flag.Float64Var(&p.contour, "contour", 0.7, "reference contour elevation (m)")
	flag.Parse()

	if p.out == "" || p.days < 2 || p.transects < 1 {
		flag.Usage()
		return fmt.Errorf("missing or invalid flags: -out, -days >= 2, -transects >= 1")
	}
	if p.interval <= 0 || p.revisit < time.Minute {
		return fmt.Errorf("-tide-interval must be positive and -revisit at least 1m")
	}
	if err := os.MkdirAll(p.out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(p.seed, p.seed^0x5eed))
	tides := tideSeries(p)
	ids, slopes := transectSet(p.transects, rng)
	raw, truth := shorelines(p, tides, ids, slopes, rng)

	tidePath := filepath.Join(p.out, "tides.csv")
	if err := writeTides(tidePath, tides); err != nil {
		return fmt.Errorf("writing tides: %w", err)
	}
	log.Printf("wrote %d tide samples: %s", tides.Len(), tidePath)

	shorelinePath := filepath.Join(p.out, "shorelines.csv")
	if err := writeShorelines(shorelinePath, raw); err != nil {
		return fmt.Errorf("writing shorelines: %w", err)
	}
	log.Printf("wrote %d acquisitions x %d transects: %s", raw.Len(), len(ids), shorelinePath)

	settings := config.DefaultSettings()
	settings.Contour = p.contour
	settings.BeachSlope = config.Slope{BeachSlope: domain.PerTransectSlope(slopes)}
	settings.Transects = ids
	settings.TideData = "tides.csv"
	settings.ShorelineCSV = "shorelines.csv"
	settingsPath := filepath.Join(p.out, "settings.yaml")
	if err := writeYAML(settingsPath, settings); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	log.Printf("wrote settings: %s", settingsPath)

	return selfCheck(raw, tides, settings.Correction(), truth)
}

// tideSeries sums the constituents on a regular grid.
func tideSeries(p params) domain.Series[float64] {
	n := int(time.Duration(p.days) * 24 * time.Hour / p.interval)
	s := domain.Series[float64]{Times: make([]time.Time, n), Values: make([]float64, n)}
	for i := range n {
		ts := baseDate.Add(time.Duration(i) * p.interval)
		s.Times[i] = ts
		s.Values[i] = tideAt(ts)
	}
	return s
}

func tideAt(ts time.Time) float64 {
	elapsed := ts.Sub(baseDate).Seconds()
	var h float64
	for _, c := range constituents {
		h += c.amplitude * math.Cos(2*math.Pi*elapsed/c.period.Seconds()+c.phase)
	}
	return math.Round(h*1000) / 1000
}

func transectSet(n int, rng *rand.Rand) ([]string, []float64) {
	ids := make([]string, n)
	slopes := make([]float64, n)
	for i := range n {
		ids[i] = fmt.Sprintf("T%02d", i+1)
		slopes[i] = math.Round((0.05+0.1*rng.Float64())*1000) / 1000
	}
	return ids, slopes
}

// shorelines samples acquisitions strictly inside the tide series and biases
// each true position by the tide at the next tide sample, the same sample
// the resolver will pick.
func shorelines(p params, tides domain.Series[float64], ids []string, slopes []float64, rng *rand.Rand) (domain.ShorelineTable, [][]float64) {
	_, end, _ := tides.Span()
	raw := domain.ShorelineTable{Transects: ids, Positions: make([][]float64, len(ids))}
	truth := make([][]float64, len(ids))

	ts := baseDate.Add(p.interval / 2)
	for ts.Before(end) {
		level, _ := tides.Ceiling(ts)
		day := ts.Sub(baseDate).Hours() / 24
		raw.Times = append(raw.Times, ts)
		for j := range ids {
			seasonal := 8 * math.Sin(2*math.Pi*day/365+float64(j))
			trend := -0.01 * day
			actual := 100 + 5*float64(j) + seasonal + trend
			pos := actual - (level-p.contour)/slopes[j]
			if rng.Float64() < p.cloudy {
				pos = math.NaN()
			}
			truth[j] = append(truth[j], actual)
			raw.Positions[j] = append(raw.Positions[j], math.Round(pos*100)/100)
		}
		jitter := time.Duration(rng.Int64N(int64(p.revisit / 4)))
		ts = ts.Add(p.revisit - p.revisit/8 + jitter).Truncate(time.Second)
	}
	return raw, truth
}

func writeTides(path string, tides domain.Series[float64]) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{config.DefaultTideTimeColumn, config.DefaultTideValueColumn}); err != nil {
			return err
		}
		for i, ts := range tides.Times {
			rec := []string{ts.Format(csvfile.OutputTimeLayout), strconv.FormatFloat(tides.Values[i], 'f', -1, 64)}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeShorelines(path string, table domain.ShorelineTable) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := append([]string{config.DefaultTimeColumn}, table.Transects...)
		if err := w.Write(header); err != nil {
			return err
		}
		rec := make([]string, len(header))
		for i, ts := range table.Times {
			rec[0] = ts.Format(csvfile.OutputTimeLayout)
			for j := range table.Transects {
				v := table.Positions[j][i]
				rec[j+1] = ""
				if !math.IsNaN(v) {
					rec[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
				}
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, fill func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// selfCheck corrects the generated table and reports how far the corrected
// positions are from the unbiased ones. Positions are rounded to 1 cm, so
// the error should be of that order.
func selfCheck(raw domain.ShorelineTable, tides domain.Series[float64], settings domain.CorrectionSettings, truth [][]float64) error {
	corrected, err := domain.ResolveAndCorrect(raw, tides, settings)
	if err != nil {
		return fmt.Errorf("self-check: %w", err)
	}
	for j, id := range corrected.Transects {
		var diffs []float64
		for i, v := range corrected.Positions[j] {
			if !math.IsNaN(v) {
				diffs = append(diffs, v-truth[j][i])
			}
		}
		rmse := 0.0
		if len(diffs) > 0 {
			rmse = floats.Norm(diffs, 2) / math.Sqrt(float64(len(diffs)))
		}
		log.Printf("%s: %d samples, recovery rmse %.4f m", id, len(diffs), rmse)
	}
	return nil
}

// Command authcore-perfcheck compares two `go test -bench` outputs and exits
// non-zero when a tracked benchmark regresses past the threshold.
package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
)

const defaultThreshold = 0.30

var trackedMetrics = map[string][]string{
	"BenchmarkIssuePair":      {"ns/op", "allocs/op"},
	"BenchmarkValidateAccess": {"ns/op", "allocs/op"},
	"BenchmarkRefresh":        {"ns/op"},
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "--baseline and --candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "--threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseFile(baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, failures := compare(baseline, candidate, trackedMetrics, threshold)
	printRows(os.Stdout, rows)

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

func parseFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file, trackedMetrics)
}

func printRows(w io.Writer, rows []row) {
	fmt.Fprintln(w, "perf regression check:")
	fmt.Fprintln(w, "benchmark metric baseline candidate delta")
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Metric, r.Baseline, r.Candidate, r.Delta*100)
	}
}

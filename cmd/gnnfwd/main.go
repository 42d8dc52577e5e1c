// Command gnnfwd runs the forward pass of a policy described by an HCL
// run file over batches of random observations, and reports the
// actions and values it produces.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/config"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/network"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

var (
	flagConfig        = flag.String("config", "", "HCL run file describing the layout and the policy.")
	flagBatch         = flag.Int("batch", 8, "Number of observations per step.")
	flagIters         = flag.Int("iters", 100, "Number of steps to run.")
	flagSeed          = flag.Uint64("seed", 0, "Seed of the random observations.")
	flagDeterministic = flag.Bool("deterministic", false, "Take the most likely actions instead of sampling them.")
)

// starter is implemented by layouts which can draw random observations
type starter interface {
	Starter(seed uint64) environment.Starter
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if *flagConfig == "" {
		fmt.Fprintln(os.Stderr, "gnnfwd: -config is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func run() error {
	r, err := config.Load(*flagConfig, nil)
	if err != nil {
		return err
	}
	s, ok := r.Unpacker.(starter)
	if !ok {
		return errors.Errorf("run: cannot draw random observations of "+
			"layout %T", r.Unpacker)
	}
	obs := s.Starter(*flagSeed)

	pol, err := r.CreatePolicy()
	if err != nil {
		return err
	}
	klog.Infof("%v policy over %v with %s parameters", r.Policy.Type(),
		r.Space, humanize.Comma(int64(network.NumParams(pol.Params()))))

	var values []float64
	histogram := make([]map[int]int, r.Space.Dims())
	for k := range histogram {
		histogram[k] = make(map[int]int)
	}

	bar := progressbar.Default(int64(*flagIters), "stepping")
	for i := 0; i < *flagIters; i++ {
		result, err := pol.Step(obs.Start(*flagBatch), *flagDeterministic)
		if err != nil {
			return errors.Wrapf(err, "run: step %d", i)
		}
		values = append(values, result.Values...)

		rows, _ := result.Actions.Dims()
		for b := 0; b < rows; b++ {
			for k := range histogram {
				histogram[k][int(result.Actions.At(b, k))]++
			}
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("observations: %s\n", humanize.Comma(int64(len(values))))
	if len(values) > 0 {
		mean, std := stat.MeanStdDev(values, nil)
		fmt.Printf("value: %.4f ± %.4f\n", mean, std)
	}
	for k, counts := range histogram {
		fmt.Printf("sub-action %d: %s\n", k, formatCounts(counts))
	}
	return nil
}

// formatCounts lists the counts of each action in action order
func formatCounts(counts map[int]int) string {
	actions := make([]int, 0, len(counts))
	for a := range counts {
		actions = append(actions, a)
	}
	sort.Ints(actions)

	out := ""
	for i, a := range actions {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d: %s", a, humanize.Comma(int64(counts[a])))
	}
	return out
}

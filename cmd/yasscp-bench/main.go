// Command yasscp-bench is a small benchmark driver that loads a DIMACS CNF
// instance and runs it through the trail package's CDCL search loop,
// printing a search-stats table. It exists only to give the ambient
// stack (flags, profiling) a visible anchor; it carries no propagation
// logic of its own.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rhartert/yasscp/testfixtures"
	"github.com/rhartert/yasscp/trail"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagGzipped = flag.Bool(
	"gz",
	false,
	"instance file is gzip-compressed",
)

type config struct {
	instanceFile string
	gzipped      bool
	memProfile   bool
	cpuProfile   bool
}

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}
	return &config{
		instanceFile: flag.Arg(0),
		gzipped:      *flagGzipped,
		memProfile:   *flagMemProfile,
		cpuProfile:   *flagCPUProfile,
	}, nil
}

// stats accumulates search counters, mirroring the teacher's own
// TotalConflicts/TotalRestarts bookkeeping.
type stats struct {
	decisions int64
	conflicts int64
}

func printSeparator() {
	fmt.Println("c " + "-----------------------------")
}

func printSearchHeader() {
	printSeparator()
	fmt.Println("c search stats")
	printSeparator()
}

func printSearchStats(st stats, elapsed time.Duration) {
	fmt.Printf("c decisions:  %d\n", st.decisions)
	fmt.Printf("c conflicts:  %d (%.2f /sec)\n", st.conflicts, float64(st.conflicts)/elapsed.Seconds())
	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
}

// solve runs a plain decide/propagate/analyze/backtrack loop directly over
// the trail, picking the first unassigned variable (false phase) at each
// decision. It is intentionally simple: this driver exists to exercise the
// core trail package end to end, not to showcase search heuristics.
func solve(t *trail.Trail, st *stats) trail.LBool {
	if t.Unsat() {
		return trail.False
	}
	for {
		if confl := t.Propagate(); confl != nil {
			st.conflicts++
			if t.DecisionLevel() == 0 {
				return trail.False
			}
			learnt, backtrackLevel := t.Analyze(confl)
			t.CancelUntil(backtrackLevel)
			t.Record(learnt)
			continue
		}

		v := nextUnassigned(t)
		if v < 0 {
			return trail.True
		}
		st.decisions++
		t.Assume(trail.NegativeLiteral(v))
	}
}

func nextUnassigned(t *trail.Trail) int {
	for v := 0; v < t.NumVariables(); v++ {
		if t.VarValue(v) == trail.Unknown {
			return v
		}
	}
	return -1
}

func run(cfg *config) error {
	t := trail.New(trail.Options{})
	if err := testfixtures.LoadCNF(cfg.instanceFile, cfg.gzipped, t); err != nil {
		return fmt.Errorf("could not parse instance: %s", err)
	}

	fmt.Printf("c variables:  %d\n", t.NumVariables())
	fmt.Printf("c clauses:    %d\n", t.NumConstraints())

	var st stats
	start := time.Now()
	status := solve(t, &st)
	elapsed := time.Since(start)

	printSearchHeader()
	printSearchStats(st, elapsed)
	fmt.Printf("c status:     %s\n", status)

	return nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
		return
	}
}

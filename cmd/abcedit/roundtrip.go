package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"lukechampine.com/blake3"

	"github.com/gemforce-team/abcedit"
	"github.com/gemforce-team/abcedit/abc"
)

var (
	roundtripWrite bool
	roundtripCheck bool
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip <file>...",
	Short: "Decode and re-encode documents, reporting whether they survive",
	Long: `Decode each document into a program, encode it again and compare.

Each document is reported as identical (same bytes), equal (different bytes,
same program) or differ. Files are processed in parallel, see --jobs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoundtrip,
}

func init() {
	roundtripCmd.Flags().BoolVarP(&roundtripWrite, "write", "w", false, "Write re-encoded documents back to their files")
	roundtripCmd.Flags().BoolVar(&roundtripCheck, "check", false, "Fail unless every document is identical")
}

type outcome string

const (
	outcomeIdentical outcome = "identical"
	outcomeEqual     outcome = "equal"
	outcomeDiffer    outcome = "differ"
	outcomeFailed    outcome = "failed"
)

type roundTripReport struct {
	name    string
	outcome outcome
	before  [32]byte
	after   [32]byte
	err     error
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	reports := make([][]roundTripReport, len(paths))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(cfg.Jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			r, err := roundTripPath(path, encodeOptions(), roundtripWrite)
			if err != nil {
				r = append(r, roundTripReport{name: path, outcome: outcomeFailed, err: err})
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed, changed := 0, 0
	for _, rs := range reports {
		for _, r := range rs {
			printReport(out, r)
			switch r.outcome {
			case outcomeFailed, outcomeDiffer:
				failed++
			case outcomeEqual:
				changed++
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d documents failed the round trip", failed)
	}
	if roundtripCheck && changed > 0 {
		return fmt.Errorf("%d documents changed", changed)
	}
	return nil
}

// roundTripPath round-trips every document in path and, when write is set,
// stores the results in place.
func roundTripPath(path string, opts abc.EncodeOptions, write bool) ([]roundTripReport, error) {
	inputs, err := readInputs(path)
	if err != nil {
		return nil, err
	}
	log := logger.With(zap.String("path", path))

	var reports []roundTripReport
	dirty := false
	for _, in := range inputs {
		r := roundTripReport{name: in.name, before: blake3.Sum256(in.data)}
		res, err := abcedit.RoundTrip(in.data, opts)
		if err != nil {
			r.outcome, r.err = outcomeFailed, err
			reports = append(reports, r)
			continue
		}
		r.after = blake3.Sum256(res.Output)
		switch {
		case res.Identical:
			r.outcome = outcomeIdentical
		case res.Equal:
			r.outcome = outcomeEqual
		default:
			r.outcome = outcomeDiffer
		}
		reports = append(reports, r)
		log.Debug("round trip", zap.String("document", in.name), zap.String("outcome", string(r.outcome)))

		if !write || r.outcome != outcomeEqual {
			continue
		}
		if in.movie == nil {
			if err := writeFile(path, res.Output); err != nil {
				return reports, err
			}
			continue
		}
		if err := in.movie.ReplaceABC(in.tag, res.Output); err != nil {
			return reports, err
		}
		dirty = true
	}

	if dirty {
		data, err := inputs[0].movie.Encode()
		if err != nil {
			return reports, err
		}
		if err := writeFile(path, data); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

var outcomeStyles = map[outcome]lipgloss.Style{
	outcomeIdentical: lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
	outcomeEqual:     lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
	outcomeDiffer:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	outcomeFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printReport(w io.Writer, r roundTripReport) {
	status := fmt.Sprintf("%-9s", r.outcome)
	if isTerminal(w) {
		status = outcomeStyles[r.outcome].Render(status)
	}
	if r.err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", status, r.name, r.err)
		return
	}
	fmt.Fprintf(w, "%s %s  %s -> %s\n", status, r.name, shortDigest(r.before), shortDigest(r.after))
}

func shortDigest(d [32]byte) string {
	return hex.EncodeToString(d[:6])
}

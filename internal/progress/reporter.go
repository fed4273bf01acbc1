package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
)

// Reporter provides progress feedback while prompts are turned into diagrams.
// State has the signature of flowchart.Observer.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	State(cycleID string, s flowchart.State)
	Finish()
}

// NewReporter returns a CIReporter if the CI environment variable is set,
// or a TerminalReporter otherwise. Both write to stderr so stdout stays free
// for diagram output.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return NewCIReporter(os.Stderr)
	}
	return &TerminalReporter{out: os.Stderr}
}

var stateLabels = map[flowchart.State]string{
	flowchart.StateValidating:         "Checking input",
	flowchart.StateAwaitingCompletion: "Waiting for the model",
	flowchart.StateExtracting:         "Extracting source",
	flowchart.StateRendering:          "Rendering",
	flowchart.StateDone:               "Done",
	flowchart.StateFailed:             "Failed",
}

// Label returns a human-readable description of s.
func Label(s flowchart.State) string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return string(s)
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("Generating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) State(cycleID string, s flowchart.State) {
	if r.bar != nil {
		r.bar.Describe(Label(s))
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	out     io.Writer
	total   int
	current int
}

// NewCIReporter creates a CIReporter writing to out.
func NewCIReporter(out io.Writer) *CIReporter {
	return &CIReporter{out: out}
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.out, "Generating %d diagram(s)\n", total)
}

func (r *CIReporter) Update(current int, message string) {
	r.current = current
	fmt.Fprintf(r.out, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) State(cycleID string, s flowchart.State) {
	// Only the terminal states are worth a log line.
	if s == flowchart.StateDone || s == flowchart.StateFailed {
		fmt.Fprintf(r.out, "[%d/%d] %s\n", r.current, r.total, Label(s))
	}
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.out, "Generation complete")
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/summary"
)

type printer struct {
	w      io.Writer
	green  func(a ...interface{}) string
	red    func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:      w,
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

func (p *printer) loss(l model.Loss) {
	fmt.Fprintf(p.w, "%s %s\n", p.green("loss:"), l)
}

func (p *printer) trials(t *hyperopt.Trials) {
	best, err := t.Best()
	if err != nil {
		fmt.Fprintf(p.w, "%s %d trials, none succeeded\n", p.red("search:"), t.Len())
		return
	}
	fmt.Fprintf(p.w, "%s %d trials, best #%d loss=%.6f params=%s\n",
		p.green("search:"), t.Len(), best.ID, best.Loss, best.Params.Format())
}

// summaries prints the confusion matrices of every goal in declaration order.
func (p *printer) summaries(title string, goals []features.Goal, sums map[string]*summary.ClassificationSummary) {
	fmt.Fprintf(p.w, "\n%s\n", p.green("== "+title+" =="))
	for _, g := range goals {
		s, ok := sums[g.Key()]
		if !ok {
			continue
		}
		count := s.ConfusionCount()
		loss := s.ConfusionLoss()

		head := p.cyan(g.Key())
		if count[0][0] == 0 {
			head += " " + p.red("(no true positives)")
		}
		fmt.Fprintf(p.w, "%s  rows=%d cutoff=%.4f\n", head, s.Len(), s.Cutoff())

		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "\tpredicted +\tpredicted -\tloss +\tloss -\t\n")
		fmt.Fprintf(tw, "actual +\t%d\t%d\t%.4f\t%.4f\t\n", count[0][0], count[1][0], loss[0][0], loss[1][0])
		fmt.Fprintf(tw, "actual -\t%d\t%d\t%.4f\t%.4f\t\n", count[0][1], count[1][1], loss[0][1], loss[1][1])
		tw.Flush()
	}
}

func (p *printer) saved(path string) {
	fmt.Fprintf(p.w, "\n%s %s\n", p.yellow("model saved to"), path)
}

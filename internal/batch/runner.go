package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/flowgen/internal/flowchart"
	"github.com/ziadkadry99/flowgen/internal/logger"
)

// Reporter receives batch progress. progress.Reporter satisfies it.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// Result pairs a prompt file with the cycle it produced.
type Result struct {
	File  PromptFile
	Cycle *flowchart.Cycle
	// Outputs lists the files written for this prompt.
	Outputs []string
}

// Runner turns prompt files into diagrams one after another.
type Runner struct {
	Gen       *flowchart.Generator
	APIKey    string
	OutDir    string
	SourceExt string // extension for source files, e.g. ".mmd"
	Reporter  Reporter
}

// Run processes files serially. Failed cycles do not stop the batch; the
// returned error reports how many failed.
func (r *Runner) Run(ctx context.Context, files []PromptFile) ([]Result, error) {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if r.Reporter != nil {
		r.Reporter.Start(len(files))
		defer r.Reporter.Finish()
	}

	var (
		results []Result
		failed  int
	)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if r.Reporter != nil {
			r.Reporter.Update(i+1, f.RelPath)
		}

		c, err := r.Gen.Generate(ctx, r.APIKey, f.Prompt)
		if err != nil {
			return results, fmt.Errorf("%s: %w", f.RelPath, err)
		}

		res := Result{File: f, Cycle: c}
		if c.OK() {
			outputs, err := r.write(f.Name, c)
			if err != nil {
				return results, err
			}
			res.Outputs = outputs
		} else {
			failed++
			logger.Warnf("%s: %s", f.RelPath, c.Message)
		}
		results = append(results, res)
	}

	if failed > 0 {
		return results, &FailedError{Failed: failed, Total: len(files)}
	}
	return results, nil
}

func (r *Runner) write(name string, c *flowchart.Cycle) ([]string, error) {
	ext := r.SourceExt
	if ext == "" {
		ext = ".txt"
	}
	svgPath := filepath.Join(r.OutDir, name+".svg")
	srcPath := filepath.Join(r.OutDir, name+ext)

	if err := os.WriteFile(svgPath, []byte(c.Markup), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", svgPath, err)
	}
	if err := os.WriteFile(srcPath, []byte(c.Source+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", srcPath, err)
	}
	return []string{svgPath, srcPath}, nil
}

// FailedError reports that some prompts in a batch did not render.
type FailedError struct {
	Failed int
	Total  int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%d of %d prompts failed", e.Failed, e.Total)
}

// IsFailed reports whether err is a *FailedError.
func IsFailed(err error) bool {
	var fe *FailedError
	return errors.As(err, &fe)
}

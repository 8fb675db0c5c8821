// Package report turns the JSON stream emitted by the suite run into
// aggregate results and renders them as JSON or a self-contained HTML page.
package report

import (
	"time"
)

// Outcome is the final state of a single test.
type Outcome string

// test outcome constants, matching the actions of the test JSON stream.
const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeSkip Outcome = "skip"
)

// Result is the outcome of one test with its captured output.
type Result struct {
	Name    string        `json:"name"`
	Package string        `json:"package"`
	Outcome Outcome       `json:"outcome"`
	Elapsed time.Duration `json:"elapsed"`
	Output  []string      `json:"output,omitempty"`
}

// Report is a complete suite run.
type Report struct {
	Title    string        `json:"title"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed"`
	Revision string        `json:"revision"`
	Browser  string        `json:"browser"`
	BaseURL  string        `json:"base_url"`
	Results  []Result      `json:"results"`

	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Meta describes the run environment recorded alongside the results.
type Meta struct {
	Title    string
	Started  time.Time
	Elapsed  time.Duration
	Revision string
	Browser  string
	BaseURL  string
}

// New assembles a report from parsed results and run metadata.
func New(meta Meta, results []Result) Report {
	rep := Report{
		Title:    meta.Title,
		Started:  meta.Started,
		Elapsed:  meta.Elapsed,
		Revision: meta.Revision,
		Browser:  meta.Browser,
		BaseURL:  meta.BaseURL,
		Results:  results,
		Total:    len(results),
	}
	if rep.Title == "" {
		rep.Title = "Dashboard UI Suite"
	}

	for _, r := range results {
		switch r.Outcome {
		case OutcomePass:
			rep.Passed++
		case OutcomeFail:
			rep.Failed++
		case OutcomeSkip:
			rep.Skipped++
		}
	}
	return rep
}

// Ok reports whether the run had no failures.
func (r Report) Ok() bool {
	return r.Failed == 0
}

// Failures returns only the failed results.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFail {
			out = append(out, res)
		}
	}
	return out
}

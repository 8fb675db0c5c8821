package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// testEvent is one line of the stream produced by go test -json.
type testEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Parse reads a test JSON stream and returns per-test results sorted by name.
// lines that are not JSON (toolchain noise, build output) are skipped.
// package-level events without a test name are ignored, only tests count.
func Parse(r io.Reader) ([]Result, error) {
	type key struct{ pkg, test string }
	outputs := make(map[key][]string)
	results := make(map[key]Result)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var ev testEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue // interleaved non-JSON output
		}
		if ev.Test == "" {
			continue
		}

		k := key{ev.Package, ev.Test}
		switch ev.Action {
		case "output":
			if text := strings.TrimRight(ev.Output, "\n"); text != "" {
				outputs[k] = append(outputs[k], text)
			}
		case "pass", "fail", "skip":
			res := Result{
				Name:    ev.Test,
				Package: ev.Package,
				Outcome: Outcome(ev.Action),
				Elapsed: time.Duration(ev.Elapsed * float64(time.Second)),
			}
			// captured output only matters for diagnosis
			if res.Outcome != OutcomePass {
				res.Output = outputs[k]
			}
			results[k] = res
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read test stream: %w", err)
	}

	out := make([]Result, 0, len(results))
	for _, res := range results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

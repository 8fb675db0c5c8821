package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	stream := `{"Time":"2026-08-28T10:00:00Z","Action":"run","Package":"e2e","Test":"TestLogin"}
{"Time":"2026-08-28T10:00:01Z","Action":"output","Package":"e2e","Test":"TestLogin","Output":"=== RUN   TestLogin\n"}
{"Time":"2026-08-28T10:00:02Z","Action":"pass","Package":"e2e","Test":"TestLogin","Elapsed":1.5}
{"Time":"2026-08-28T10:00:02Z","Action":"run","Package":"e2e","Test":"TestNavigation"}
{"Time":"2026-08-28T10:00:03Z","Action":"output","Package":"e2e","Test":"TestNavigation","Output":"    nav_test.go:42: sidebar missing\n"}
{"Time":"2026-08-28T10:00:03Z","Action":"fail","Package":"e2e","Test":"TestNavigation","Elapsed":0.8}
{"Time":"2026-08-28T10:00:04Z","Action":"skip","Package":"e2e","Test":"TestCharts","Elapsed":0}
{"Time":"2026-08-28T10:00:04Z","Action":"pass","Package":"e2e","Elapsed":4.1}
`

	results, err := Parse(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, results, 3, "package-level event should not produce a result")

	// sorted by name within the package
	assert.Equal(t, "TestCharts", results[0].Name)
	assert.Equal(t, OutcomeSkip, results[0].Outcome)

	assert.Equal(t, "TestLogin", results[1].Name)
	assert.Equal(t, OutcomePass, results[1].Outcome)
	assert.Equal(t, 1500*time.Millisecond, results[1].Elapsed)
	assert.Empty(t, results[1].Output, "passing tests drop captured output")

	assert.Equal(t, "TestNavigation", results[2].Name)
	assert.Equal(t, OutcomeFail, results[2].Outcome)
	require.Len(t, results[2].Output, 1)
	assert.Contains(t, results[2].Output[0], "sidebar missing")
}

func TestParse_SkipsNoise(t *testing.T) {
	stream := `go: downloading github.com/playwright-community/playwright-go v0.5200.1
{"Action":"pass","Package":"e2e","Test":"TestLogin","Elapsed":0.1}
not json at all
{broken json
`
	results, err := Parse(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "TestLogin", results[0].Name)
}

func TestParse_Empty(t *testing.T) {
	results, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParse_SubtestsKeptSeparate(t *testing.T) {
	stream := `{"Action":"pass","Package":"e2e","Test":"TestLogin","Elapsed":1}
{"Action":"fail","Package":"e2e","Test":"TestLogin/bad_password","Elapsed":0.2}
`
	results, err := Parse(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "TestLogin", results[0].Name)
	assert.Equal(t, "TestLogin/bad_password", results[1].Name)
	assert.Equal(t, OutcomeFail, results[1].Outcome)
}

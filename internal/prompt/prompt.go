// Package prompt implements the Prompt Builder (spec.md §4.6): a pure
// function assembling the natural-language request sent to the LLM.
// No network, no I/O — the output is a pure function of its inputs.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"evo/internal/registry"
)

// forbidden lists constructs the prompt explicitly asks the LLM to
// avoid, mirrored by Validator Gate 2's denylist so the model is told
// exactly what will get its proposal rejected.
var forbidden = []string{
	"os/exec",
	"unsafe",
	"syscall",
	"net", "net/http",
	"os.Remove", "os.RemoveAll", "os.Rename",
	"plugin.Open",
	"go/parser.ParseFile with dynamic input (self-hosting eval)",
}

// fallbackBenchmarks is returned by FormatBenchmarks when given a
// non-map input (spec.md §8 boundary case).
const fallbackBenchmarks = "(no benchmark data available)"

// Build assembles the full prompt text for a target.
func Build(target registry.Target, currentSource string, benchmarks interface{}) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are proposing a rewrite of the Go function %q.\n\n", target.Name)
	b.WriteString("Current source:\n```go\n")
	b.WriteString(currentSource)
	if !strings.HasSuffix(currentSource, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")

	b.WriteString("Latest benchmark results:\n")
	formatted := FormatBenchmarks(benchmarks)
	if formatted == "" {
		b.WriteString("(no prior benchmark data)\n")
	} else {
		b.WriteString(formatted)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("Forbidden constructs — any of these will cause automatic rejection:\n")
	for _, f := range forbidden {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n")

	b.WriteString("Respond with exactly one fenced Go code block containing the complete replacement source, followed by a single line starting with \"Reasoning:\" explaining your change.\n")

	return b.String()
}

// FormatBenchmarks renders a benchmark map as one "key: value" line per
// metric, sorted by key for determinism. An empty map yields an empty
// string; a non-map input yields a fixed fallback string (spec.md §8
// boundary cases).
func FormatBenchmarks(benchmarks interface{}) string {
	m, ok := benchmarks.(map[string]float64)
	if !ok {
		return fallbackBenchmarks
	}
	if len(m) == 0 {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %v", k, m[k])
	}
	return b.String()
}

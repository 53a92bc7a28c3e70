// Package report renders pipeline results for terminals and files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/musigent/pkg/types"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// KeySep joins nested keys in flattened rows.
const KeySep = " → "

var sectionOrder = []string{"plan", "draft", "evaluation", "time_info"}

// Row is one flattened field.
type Row struct {
	Key   string
	Value string
}

// Section is one top-level part of a result.
type Section struct {
	Name string
	Rows []Row
}

// Sections flattens res into plan, draft, evaluation and time_info sections.
func Sections(res types.Result) ([]Section, error) {
	doc, err := toMap(res)
	if err != nil {
		return nil, err
	}
	out := make([]Section, 0, len(sectionOrder))
	for _, name := range sectionOrder {
		v, ok := doc[name].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Section{Name: strings.ToUpper(name), Rows: Flatten(v, "")})
	}
	return out, nil
}

// Flatten turns nested maps into rows with keys joined by KeySep, sorted by key.
func Flatten(m map[string]any, prefix string) []Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []Row
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + KeySep + k
		}
		if nested, ok := m[k].(map[string]any); ok && len(nested) > 0 {
			rows = append(rows, Flatten(nested, key)...)
			continue
		}
		rows = append(rows, Row{Key: key, Value: formatValue(m[k])})
	}
	return rows
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		if len(x) == 0 {
			return "{}"
		}
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(x)
	}
}

func toMap(res types.Result) (map[string]any, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Write renders res to w in the given format.
func Write(w io.Writer, res types.Result, format string) error {
	switch format {
	case "", FormatText:
		return writeText(w, res)
	case FormatMarkdown:
		return writeMarkdown(w, res)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		doc, err := toMap(res)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, res types.Result) error {
	sections, err := Sections(res)
	if err != nil {
		return err
	}
	b := &strings.Builder{}
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "%s\n", s.Name)
		width := 0
		for _, r := range s.Rows {
			if n := len([]rune(r.Key)); n > width {
				width = n
			}
		}
		for _, r := range s.Rows {
			pad := width - len([]rune(r.Key))
			fmt.Fprintf(b, "  %s%s  %s\n", r.Key, strings.Repeat(" ", pad), r.Value)
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func writeMarkdown(w io.Writer, res types.Result) error {
	sections, err := Sections(res)
	if err != nil {
		return err
	}
	b := &strings.Builder{}
	verdict := "REJECTED"
	if res.Verdict.Approved {
		verdict = "APPROVED"
	}
	fmt.Fprintf(b, "# Track %s: %s\n", res.Draft.TrackID, verdict)
	for _, s := range sections {
		fmt.Fprintf(b, "\n## %s\n\n| Key | Value |\n|---|---|\n", s.Name)
		for _, r := range s.Rows {
			fmt.Fprintf(b, "| %s | %s |\n", escapeCell(r.Key), escapeCell(r.Value))
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

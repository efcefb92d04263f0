package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatText:
		return writeText(w, v)
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
}

// writeText renders a list of objects as a table and a single object as
// key/value lines. Anything else falls back to JSON.
func writeText(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch val := generic.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				return Write(w, FormatJSON, v)
			}
			rows = append(rows, m)
		}
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "(empty)")
			return err
		}
		cols := columns(rows)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
		for _, row := range rows {
			cells := make([]string, 0, len(cols))
			for _, col := range cols {
				cells = append(cells, cell(row[col]))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s:\t%s\n", k, cell(val[k]))
		}
	default:
		return Write(w, FormatJSON, v)
	}
	return tw.Flush()
}

func columns(rows []map[string]any) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

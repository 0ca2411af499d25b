package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// printResult writes v as indented JSON with --json, otherwise as sorted
// "key: value" lines with nested values in compact JSON.
func printResult(w io.Writer, v any) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		_, err := fmt.Fprintln(w, string(raw))
		return err
	}
	return writeFields(w, obj)
}

func writeFields(w io.Writer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	width := 0
	for k := range obj {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-*s  %s\n", width+1, k+":", scalar(obj[k]))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case bool, float64:
		return fmt.Sprint(t)
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

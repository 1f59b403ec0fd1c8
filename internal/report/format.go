package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"votewatch/internal/tally"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

var Formats = []Format{FormatTable, FormatMarkdown, FormatJSON, FormatYAML}

func ParseFormat(s string) (Format, error) {
	format := Format(s)
	if !slices.Contains(Formats, format) {
		return "", fmt.Errorf("unknown format %q, expected one of %v", s, Formats)
	}
	return format, nil
}

// Write renders result in format.
func Write(w io.Writer, format Format, result *tally.Result, updatedAt time.Time) error {
	switch format {
	case FormatTable:
		WriteTable(w, result)
		return nil
	case FormatMarkdown:
		return WriteMarkdown(w, result, updatedAt)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(result)
		if err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

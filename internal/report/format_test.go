package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"votewatch/internal/tally"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("yaml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	_, err = ParseFormat("csv")
	require.ErrorContains(t, err, "unknown format")
}

func TestWriteStructured(t *testing.T) {
	result := sampleResult(t)

	var jsonOut bytes.Buffer
	require.NoError(t, Write(&jsonOut, FormatJSON, result, time.Now()))
	var fromJSON tally.Result
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &fromJSON))
	if diff := cmp.Diff(*result, fromJSON); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}

	var yamlOut bytes.Buffer
	require.NoError(t, Write(&yamlOut, FormatYAML, result, time.Now()))
	require.Contains(t, yamlOut.String(), "vote_status: 已投票")
	require.Contains(t, yamlOut.String(), "total_votes: 2000")
	var fromYAML tally.Result
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	if diff := cmp.Diff(*result, fromYAML); diff != "" {
		t.Fatalf("yaml mismatch (-want +got):\n%s", diff)
	}
}

package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type secretValue string

func (s secretValue) LogValue() slog.Value {
	return slog.GroupValue(slog.String("secret", string(s)))
}

func TestRedactingHandler(t *testing.T) {
	cases := []struct {
		name    string
		attrs   []any
		hidden  string
		visible string
	}{
		{
			name:    "sensitive key",
			attrs:   []any{"password", "hunter2", "user", "alice"},
			hidden:  "hunter2",
			visible: "alice",
		},
		{
			name:    "bearer value",
			attrs:   []any{"header", "Bearer abc.def", "path", "/api/vote-data"},
			hidden:  "abc.def",
			visible: "/api/vote-data",
		},
		{
			name:    "log valuer group",
			attrs:   []any{"creds", secretValue("s3cr3t"), "url", "https://example.com/vote"},
			hidden:  "s3cr3t",
			visible: "https://example.com/vote",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("message", test.attrs...)

			out := buf.String()
			require.NotContains(t, out, test.hidden)
			require.Contains(t, out, test.visible)
			require.Contains(t, out, RedactedValue)
		})
	}
}

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("extractor", rec)
	scoped.ReportWarning("extract.entry", "bad entry")
	scoped.ReportCount("extract.skipped", 2)

	reports := rec.Reports()
	require.Len(t, reports, 2)
	require.Equal(t, "extractor: extract.entry", reports[0].ID)
	require.Equal(t, []any{"bad entry"}, reports[0].Params)
	require.Equal(t, int64(2), reports[1].Count)
	require.Len(t, rec.Find("count", "skipped"), 1)
}

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/contactstats/internal/stats"
)

func sampleResult() *stats.Result {
	r := stats.NewResult()
	r.Set("bob@x.com", stats.AddressStats{Total: 1, Received: 1})
	r.Set("alice@x.com", stats.AddressStats{
		FirstContact: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		LastContact:  time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		Dated:        true,
		Sent:         1,
		Received:     1,
		Total:        2,
	})
	return r
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	want := "Email Address,Sent,Received,Total,First Email,Last Email\n" +
		"bob@x.com,0,1,1,,\n" +
		"alice@x.com,1,1,2,2024-01-01,2024-01-03\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, stats.NewResult()))
	assert.Equal(t, "Email Address,Sent,Received,Total,First Email,Last Email\n", buf.String())
}

func TestWriteCSV_Quoting(t *testing.T) {
	r := stats.NewResult()
	r.Set(`"Alice, Smith" <alice@x.com>`, stats.AddressStats{Total: 1})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))
	assert.Contains(t, buf.String(), `"""Alice, Smith"" <alice@x.com>",0,0,1,,`)
}

func TestSaveCSV_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, os.WriteFile(path, []byte("old content that is much longer than the new one\n"+
		"and spans several lines\nline\nline\nline\nline\n"), 0o644))

	require.NoError(t, SaveCSV(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old content")
	assert.Contains(t, string(data), "alice@x.com,1,1,2,2024-01-01,2024-01-03")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestSaveCSV_MissingDir(t *testing.T) {
	err := SaveCSV(filepath.Join(t.TempDir(), "missing", "stats.csv"), sampleResult())
	assert.Error(t, err)
}

package analytics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogFileDataCollector(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "analytics.log")
	collector, err := NewDataCollector(DataCollectorConfig{FileName: fileName, CollectorType: LOG_FILE_DATA_COLLECTOR})
	require.NoError(t, err)

	collector.RecordStepSuccess("f1", "555", "s1", "sendMessage", "default")
	collector.RecordStepFailure("f1", "555", "s2", "sendEmail", "no mailer configured")
	collector.RecordRunStatus("f1", "555", "completed")
	require.NoError(t, collector.(*LogFileDataCollector).Close())

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], `"msg":"success"`)
	require.Contains(t, lines[1], `"reason":"no mailer configured"`)
	require.Contains(t, lines[2], `"status":"completed"`)
}

func TestDefaultCollectorIsNoop(t *testing.T) {
	collector, err := NewDataCollector(DataCollectorConfig{})
	require.NoError(t, err)
	require.IsType(t, NoopCollector{}, collector)
}

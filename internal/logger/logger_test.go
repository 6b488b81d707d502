package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("prod", &buf)
	log.Debug("hidden")
	log.Info("product created", "product_id", 7)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "product created", entry["msg"])
	assert.Equal(t, 7.0, entry["product_id"])

	buf.Reset()
	NewWithWriter("dev", &buf).Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

package logconfig

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l := NewErrorLog(path)
	defer l.Close()
	l.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	content, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, "", content)

	require.NoError(t, l.Record("/approveMint", []byte(`{"data":1}`), errors.New("boom"), []byte("goroutine 1\n")))
	require.NoError(t, l.Record("", nil, nil, nil))

	content, err = l.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(content, ErrorStart))
	assert.Equal(t, 2, strings.Count(content, ErrorEnd))
	assert.Contains(t, content, "2024-05-01T12:00:00Z\nPath: /approveMint\nBody: {\"data\":1}\nError: boom\ngoroutine 1\nERROR END\n")

	again, err := ReadErrorLog(path)
	require.NoError(t, err)
	assert.Equal(t, content, again)
}

package yamlfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (d *doc) Validate() error {
	if d.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func TestDecode(t *testing.T) {
	t.Run("decodes known fields", func(t *testing.T) {
		var d doc
		require.NoError(t, Decode([]byte("name: a\ncount: 2\n"), &d))
		assert.Equal(t, doc{Name: "a", Count: 2}, d)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var d doc
		err := Decode([]byte("name: a\ncolour: red\n"), &d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "colour")
	})

	t.Run("runs validation", func(t *testing.T) {
		var d doc
		err := Decode([]byte("count: -1\n"), &d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("rejects empty documents", func(t *testing.T) {
		var d doc
		require.Error(t, Decode(nil, &d))
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\n"), 0o600))

	var d doc
	require.NoError(t, Load(path, &d))
	assert.Equal(t, "file", d.Name)

	err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

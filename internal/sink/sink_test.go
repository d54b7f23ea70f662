package sink

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFactory_Create(t *testing.T) {
	t.Run("unlinked sink stays readable through the open handle", func(t *testing.T) {
		factory := &FileFactory{Dir: t.TempDir(), Unlink: true}

		s, err := factory.Create(".txt")
		require.NoError(t, err)
		defer s.Close()

		// Nothing may remain in the directory namespace.
		entries, err := os.ReadDir(factory.Dir)
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = s.Write([]byte("spilled body"))
		require.NoError(t, err)
		require.NoError(t, s.Rewind())

		content, err := io.ReadAll(s)
		require.NoError(t, err)
		assert.Equal(t, "spilled body", string(content))
	})

	t.Run("linked sink keeps its file until discarded", func(t *testing.T) {
		dir := t.TempDir()
		factory := &FileFactory{Dir: dir, Unlink: false}

		s, err := factory.Create(".pdf")
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, ".pdf", filepath.Ext(entries[0].Name()))

		require.NoError(t, s.Discard())

		entries, err = os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "discard must remove the backing file")
	})

	t.Run("close is idempotent", func(t *testing.T) {
		factory := &FileFactory{Dir: t.TempDir(), Unlink: true}

		s, err := factory.Create("")
		require.NoError(t, err)

		assert.False(t, s.Closed())
		require.NoError(t, s.Close())
		assert.True(t, s.Closed())
		assert.NoError(t, s.Close())
		assert.NoError(t, s.Discard())
	})

	t.Run("read after close is an error, not garbage", func(t *testing.T) {
		factory := &FileFactory{Dir: t.TempDir(), Unlink: true}

		s, err := factory.Create("")
		require.NoError(t, err)
		require.NoError(t, s.Close())

		_, err = s.Read(make([]byte, 8))
		assert.ErrorIs(t, err, os.ErrClosed)
		_, err = s.Write([]byte("late"))
		assert.ErrorIs(t, err, os.ErrClosed)
		assert.ErrorIs(t, s.Rewind(), os.ErrClosed)
	})
}

func TestMemorySink(t *testing.T) {
	t.Run("write rewind read round trip", func(t *testing.T) {
		factory := &MemoryFactory{}
		s, err := factory.Create(".json")
		require.NoError(t, err)

		_, err = s.Write([]byte(`{"ok":true}`))
		require.NoError(t, err)
		require.NoError(t, s.Rewind())

		content, err := io.ReadAll(s)
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, string(content))
		assert.Equal(t, []string{".json"}, factory.Hints)
	})

	t.Run("closed sink rejects all operations", func(t *testing.T) {
		s := &MemorySink{}
		require.NoError(t, s.Close())

		_, err := s.Read(make([]byte, 1))
		assert.ErrorIs(t, err, os.ErrClosed)
		_, err = s.Write([]byte("x"))
		assert.ErrorIs(t, err, os.ErrClosed)
	})
}

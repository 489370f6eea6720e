package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LoaDamageMeter/internal/encounter"
)

func newTestStore(t *testing.T, compress bool) *Store {
	t.Helper()
	store, err := New(t.TempDir(), compress, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func makeSession(lastPacket int64) *encounter.Session {
	player := encounter.NewEntity("P1", "Hero", encounter.EntityPlayer)
	player.Stats.DamageDealt = 1000
	s := encounter.NewSession([]*encounter.Entity{player})
	s.FirstPacket = lastPacket - 10_000
	s.LastPacket = lastPacket
	return s
}

// TestSaveReadRoundtrip 压缩与未压缩归档的读写往返
func TestSaveReadRoundtrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		name := "compressed"
		if !compress {
			name = "plain"
		}
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t, compress)
			session := makeSession(1700000000000)

			path, err := store.Save(session)
			require.NoError(t, err)

			wantExt := PlainExt
			if compress {
				wantExt = CompressedExt
			}
			assert.Equal(t, wantExt, filepath.Ext(path))

			loaded, err := store.Read(path)
			require.NoError(t, err)
			assert.Equal(t, session.ID, loaded.ID)
			assert.Equal(t, session.LastPacket, loaded.LastPacket)
			require.Len(t, loaded.Entities, 1)
			assert.Equal(t, int64(1000), loaded.Entities[0].Stats.DamageDealt)
		})
	}
}

// TestReadRelativePath 相对路径相对归档目录解析
func TestReadRelativePath(t *testing.T) {
	store := newTestStore(t, true)
	session := makeSession(1700000000000)

	path, err := store.Save(session)
	require.NoError(t, err)

	loaded, err := store.Read(filepath.Base(path))
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
}

// TestReadRejectsEscapingPath 逃逸归档目录的路径被拒
func TestReadRejectsEscapingPath(t *testing.T) {
	store := newTestStore(t, true)

	outside := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(outside, []byte("{}"), 0o644))

	for _, path := range []string{
		"../secret.json",
		filepath.Join("..", filepath.Base(filepath.Dir(outside)), "secret.json"),
		outside,
	} {
		_, err := store.Read(path)
		assert.ErrorIs(t, err, ErrOutsideDir, path)
	}
}

// TestReadMissingFile 缺失文件返回错误
func TestReadMissingFile(t *testing.T) {
	store := newTestStore(t, true)
	_, err := store.Read("nope.enc")
	assert.Error(t, err)
}

// TestListOrdering 列表按时间戳前缀倒序并截断
func TestListOrdering(t *testing.T) {
	store := newTestStore(t, true)

	for _, ts := range []int64{1700000000000, 1700000002000, 1700000001000} {
		_, err := store.Save(makeSession(ts))
		require.NoError(t, err)
	}

	files, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Greater(t, files[0].Name, files[1].Name, "应按名称倒序即时间倒序")
	assert.Contains(t, files[0].Name, "1700000002000")
}

// TestLoadRecent 最近归档的降维快照，Live恒为false
func TestLoadRecent(t *testing.T) {
	store := newTestStore(t, true)
	_, err := store.Save(makeSession(1700000000000))
	require.NoError(t, err)

	recents, err := store.LoadRecent(5)
	require.NoError(t, err)
	require.Len(t, recents, 1)
	assert.False(t, recents[0].Live)
	assert.Equal(t, int64(1700000000000), recents[0].LastPacket)
}

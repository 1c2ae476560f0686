package infra

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, registryKeyLen)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

// newTestRegistry creates an encrypted registry in a temp directory for testing.
func newTestRegistry(t *testing.T) (*EncryptedRegistry, string) {
	t.Helper()
	dataDir := t.TempDir()
	reg, err := NewEncryptedRegistry(dataDir, randomKey(t))
	require.NoError(t, err)

	t.Cleanup(func() { reg.Close() })
	return reg, dataDir
}

func TestEncryptedRegistry_Instance(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Get()
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
	assert.ErrorIs(t, reg.UpdateHeartbeat(), domain.ErrNotRegistered)

	started := time.Unix(1700000000, 0)
	require.NoError(t, reg.Register(domain.Instance{
		PID:        4242,
		StartedAt:  started,
		AppVersion: "0.3.0",
		ListenAddr: "127.0.0.1:8765",
	}))

	inst, err := reg.Get()
	require.NoError(t, err)
	assert.Equal(t, 4242, inst.PID)
	assert.Equal(t, started.Unix(), inst.StartedAt.Unix())
	assert.Equal(t, "0.3.0", inst.AppVersion)
	assert.Equal(t, "127.0.0.1:8765", inst.ListenAddr)

	reg.now = func() time.Time { return started.Add(time.Hour) }
	require.NoError(t, reg.UpdateHeartbeat())
	inst, err = reg.Get()
	require.NoError(t, err)
	assert.Equal(t, started.Add(time.Hour).Unix(), inst.LastHeartbeat.Unix())

	require.NoError(t, reg.Clear())
	_, err = reg.Get()
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
}

func TestEncryptedRegistry_RegisterReplaces(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.Register(domain.Instance{PID: 1}))
	require.NoError(t, reg.Register(domain.Instance{PID: 2}))

	inst, err := reg.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, inst.PID)
	assert.False(t, inst.StartedAt.IsZero(), "start time defaults to now")
}

func TestEncryptedRegistry_Settings(t *testing.T) {
	tests := []struct {
		name   string
		writes [][2]string
		want   map[string]string
	}{
		{
			name: "empty",
			want: map[string]string{},
		},
		{
			name:   "single value",
			writes: [][2]string{{"target_process", "Endfield"}},
			want:   map[string]string{"target_process": "Endfield"},
		},
		{
			name: "last write wins",
			writes: [][2]string{
				{"skip_enabled", "true"},
				{"threshold", "0.85"},
				{"skip_enabled", "false"},
			},
			want: map[string]string{"skip_enabled": "false", "threshold": "0.85"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry(t)
			for _, w := range tt.writes {
				require.NoError(t, reg.SetSetting(w[0], w[1]))
			}

			all, err := reg.Settings()
			require.NoError(t, err)
			assert.Equal(t, tt.want, all)

			for k, v := range tt.want {
				got, ok, err := reg.GetSetting(k)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, v, got)
			}

			_, ok, err := reg.GetSetting("missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestEncryptedRegistry_SettingsSurviveClear(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.Register(domain.Instance{PID: 7}))
	require.NoError(t, reg.SetSetting("hotkey", "F9"))

	require.NoError(t, reg.Clear())

	v, ok, err := reg.GetSetting("hotkey")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "F9", v)
}

func TestEncryptedRegistry_PersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()
	key := randomKey(t)

	reg, err := NewEncryptedRegistry(dataDir, key)
	require.NoError(t, err)
	require.NoError(t, reg.SetSetting("threshold", "0.9"))
	require.NoError(t, reg.Close())

	reg, err = NewEncryptedRegistry(dataDir, key)
	require.NoError(t, err)
	defer reg.Close()

	v, ok, err := reg.GetSetting("threshold")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.9", v)
}

func TestEncryptedRegistry_WrongKey(t *testing.T) {
	dataDir := t.TempDir()
	key := randomKey(t)

	reg, err := NewEncryptedRegistry(dataDir, key)
	require.NoError(t, err)
	require.NoError(t, reg.SetSetting("k", "v"))
	require.NoError(t, reg.Close())

	_, err = NewEncryptedRegistry(dataDir, randomKey(t))
	assert.Error(t, err)
}

func TestEncryptedRegistry_FileIsEncrypted(t *testing.T) {
	reg, dataDir := newTestRegistry(t)
	require.NoError(t, reg.SetSetting("target_process", "PlainTextMarker"))

	raw, err := os.ReadFile(filepath.Join(dataDir, registryDBName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SQLite format 3")
	assert.NotContains(t, string(raw), "PlainTextMarker")
}

func testPaths(t *testing.T) Paths {
	dataDir := t.TempDir()
	return Paths{DataDir: dataDir, KeyFile: filepath.Join(dataDir, "registry.key")}
}

func TestOpenRegistry_CreatesKey(t *testing.T) {
	paths := testPaths(t)

	reg, err := OpenRegistry(paths)
	require.NoError(t, err)
	require.NoError(t, reg.SetSetting("a", "b"))
	require.NoError(t, reg.Close())

	info, err := os.Stat(paths.KeyFile)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	reg, err = OpenRegistry(paths)
	require.NoError(t, err)
	defer reg.Close()
	v, _, err := reg.GetSetting("a")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestRegistryKey(t *testing.T) {
	valid := hex.EncodeToString(bytes.Repeat([]byte{0xab}, registryKeyLen))

	tests := []struct {
		name    string
		content *string
		wantErr string
	}{
		{name: "created when missing"},
		{name: "read back with trailing newline", content: ptr(valid + "\n")},
		{name: "rejects non-hex content", content: ptr("not hex!"), wantErr: "decode"},
		{name: "rejects truncated key", content: ptr("abcd"), wantErr: "invalid key size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "registry.key")
			if tt.content != nil {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0600))
			}

			key, err := registryKey(path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, registryKeyLen)

			again, err := registryKey(path)
			require.NoError(t, err)
			assert.Equal(t, key, again, "stored key is reused")
		})
	}
}

func TestRegistryKey_FreshKeysDiffer(t *testing.T) {
	a, err := registryKey(filepath.Join(t.TempDir(), "registry.key"))
	require.NoError(t, err)
	b, err := registryKey(filepath.Join(t.TempDir(), "registry.key"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func ptr[T any](v T) *T { return &v }

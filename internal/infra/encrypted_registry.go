package infra

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	registryDBName = "autoskip.db"
	registryKeyLen = 32 // raw SQLCipher key
)

// EncryptedRegistry implements domain.InstanceRegistry using a SQLCipher
// encrypted SQLite database. It records the one running service instance
// and the settings persisted with "autoskip config set".
type EncryptedRegistry struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewEncryptedRegistry opens (or creates) an encrypted registry database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedRegistry(dataDir string, key []byte) (*EncryptedRegistry, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, registryDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096",
		dbPath, hex.EncodeToString(key))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	// A wrong key only shows up on first access.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	reg := &EncryptedRegistry{db: db, dbPath: dbPath, now: time.Now}
	if err := reg.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return reg, nil
}

// OpenRegistry opens the registry in paths.DataDir with the key stored at
// paths.KeyFile, creating the key on first use.
func OpenRegistry(paths Paths) (*EncryptedRegistry, error) {
	key, err := registryKey(paths.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("registry key: %w", err)
	}
	return NewEncryptedRegistry(paths.DataDir, key)
}

// registryKey reads the hex key at path. A missing file gets a fresh random
// key, written owner-only; the exclusive create lets a concurrent first start
// win and be read back.
func registryKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return decodeRegistryKey(raw)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key := make([]byte, registryKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		return decodeRegistryKey(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create key file: %w", err)
	}
	if _, err := f.WriteString(hex.EncodeToString(key)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

func decodeRegistryKey(raw []byte) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != registryKeyLen {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), registryKeyLen)
	}
	return key, nil
}

func (r *EncryptedRegistry) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS instance (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		last_heartbeat INTEGER NOT NULL,
		app_version TEXT DEFAULT '',
		listen_addr TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Register records inst as the running instance, replacing any previous one.
func (r *EncryptedRegistry) Register(inst domain.Instance) error {
	started := inst.StartedAt
	if started.IsZero() {
		started = r.now()
	}
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO instance (id, pid, started_at, last_heartbeat, app_version, listen_addr)
		VALUES (1, ?, ?, ?, ?, ?)`,
		inst.PID, started.Unix(), r.now().Unix(), inst.AppVersion, inst.ListenAddr,
	)
	return err
}

// UpdateHeartbeat refreshes the liveness timestamp of the running instance.
func (r *EncryptedRegistry) UpdateHeartbeat() error {
	result, err := r.db.Exec(`UPDATE instance SET last_heartbeat = ? WHERE id = 1`, r.now().Unix())
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotRegistered
	}
	return nil
}

// Get returns the recorded instance.
func (r *EncryptedRegistry) Get() (*domain.Instance, error) {
	var (
		inst               domain.Instance
		started, heartbeat int64
	)
	err := r.db.QueryRow(`
		SELECT pid, started_at, last_heartbeat, app_version, listen_addr FROM instance WHERE id = 1`,
	).Scan(&inst.PID, &started, &heartbeat, &inst.AppVersion, &inst.ListenAddr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	inst.StartedAt = time.Unix(started, 0)
	inst.LastHeartbeat = time.Unix(heartbeat, 0)
	return &inst, nil
}

// Clear forgets the running instance. Settings are kept.
func (r *EncryptedRegistry) Clear() error {
	_, err := r.db.Exec(`DELETE FROM instance`)
	return err
}

// GetSetting returns a persisted setting.
func (r *EncryptedRegistry) GetSetting(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting persists a setting, overwriting the previous value.
func (r *EncryptedRegistry) SetSetting(key, value string) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, r.now().Unix())
	return err
}

// Settings returns all persisted settings.
func (r *EncryptedRegistry) Settings() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Path returns the database file path.
func (r *EncryptedRegistry) Path() string {
	return r.dbPath
}

// Close releases the database connection.
func (r *EncryptedRegistry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ensure EncryptedRegistry implements domain.InstanceRegistry.
var _ domain.InstanceRegistry = (*EncryptedRegistry)(nil)

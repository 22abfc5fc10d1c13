package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const busyTimeout = 5 * time.Second

// schema holds the registry tables. Values and maps are stored as JSON so
// the store stays agnostic of what each platform keeps in them.
const schema = `
CREATE TABLE IF NOT EXISTS devices (
	domain       TEXT NOT NULL,
	identifier   TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	manufacturer TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	serial       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (domain, identifier)
);

CREATE TABLE IF NOT EXISTS entities (
	unique_id       TEXT PRIMARY KEY,
	device_id       TEXT NOT NULL,
	platform        TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	device_class    TEXT NOT NULL DEFAULT '',
	entity_category TEXT NOT NULL DEFAULT '',
	icon            TEXT NOT NULL DEFAULT '',
	unit            TEXT NOT NULL DEFAULT '',
	value           TEXT NOT NULL DEFAULT 'null',
	attributes      TEXT NOT NULL DEFAULT '{}',
	extra_data      TEXT NOT NULL DEFAULT '{}',
	updated_at      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entities_platform ON entities(platform);
`

// Store persists registry state to a SQLite database so entities can be
// restored before the first panel message arrives.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (and if needed creates) the registry database.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite supports one writer; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// SaveDevice inserts or replaces a device row.
func (s *Store) SaveDevice(device *Device) error {
	_, err := s.db.Exec(`
		INSERT INTO devices (domain, identifier, name, manufacturer, model, serial)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, identifier) DO UPDATE SET
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			serial = excluded.serial`,
		device.Domain, device.Identifier, device.Name, device.Manufacturer, device.Model, device.Serial,
	)
	if err != nil {
		return fmt.Errorf("saving device %s: %w", device.Identifier, err)
	}
	return nil
}

// LoadDevices reads all device rows.
func (s *Store) LoadDevices() ([]*Device, error) {
	rows, err := s.db.Query(`SELECT domain, identifier, name, manufacturer, model, serial FROM devices`)
	if err != nil {
		return nil, fmt.Errorf("loading devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		var device Device
		if err := rows.Scan(&device.Domain, &device.Identifier, &device.Name,
			&device.Manufacturer, &device.Model, &device.Serial); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, &device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading device rows: %w", err)
	}
	return devices, nil
}

// SaveEntity inserts or replaces an entity row.
func (s *Store) SaveEntity(entity *Entity) error {
	value, err := json.Marshal(entity.Value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", entity.UniqueID, err)
	}
	attributes, err := json.Marshal(orEmpty(entity.Attributes))
	if err != nil {
		return fmt.Errorf("encoding attributes for %s: %w", entity.UniqueID, err)
	}
	extraData, err := json.Marshal(orEmpty(entity.ExtraData))
	if err != nil {
		return fmt.Errorf("encoding extra data for %s: %w", entity.UniqueID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO entities (unique_id, device_id, platform, name, device_class,
			entity_category, icon, unit, value, attributes, extra_data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unique_id) DO UPDATE SET
			device_id = excluded.device_id,
			platform = excluded.platform,
			name = excluded.name,
			device_class = excluded.device_class,
			entity_category = excluded.entity_category,
			icon = excluded.icon,
			unit = excluded.unit,
			value = excluded.value,
			attributes = excluded.attributes,
			extra_data = excluded.extra_data,
			updated_at = excluded.updated_at`,
		entity.UniqueID, entity.DeviceID, entity.Platform, entity.Name, entity.DeviceClass,
		entity.EntityCategory, entity.Icon, entity.Unit,
		string(value), string(attributes), string(extraData),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving entity %s: %w", entity.UniqueID, err)
	}
	return nil
}

// LoadEntities reads all entity rows.
func (s *Store) LoadEntities() ([]*Entity, error) {
	rows, err := s.db.Query(`
		SELECT unique_id, device_id, platform, name, device_class,
			entity_category, icon, unit, value, attributes, extra_data
		FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		var entity Entity
		var value, attributes, extraData string
		if err := rows.Scan(&entity.UniqueID, &entity.DeviceID, &entity.Platform,
			&entity.Name, &entity.DeviceClass, &entity.EntityCategory,
			&entity.Icon, &entity.Unit, &value, &attributes, &extraData); err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		if err := json.Unmarshal([]byte(value), &entity.Value); err != nil {
			return nil, fmt.Errorf("decoding value for %s: %w", entity.UniqueID, err)
		}
		if err := json.Unmarshal([]byte(attributes), &entity.Attributes); err != nil {
			return nil, fmt.Errorf("decoding attributes for %s: %w", entity.UniqueID, err)
		}
		if err := json.Unmarshal([]byte(extraData), &entity.ExtraData); err != nil {
			return nil, fmt.Errorf("decoding extra data for %s: %w", entity.UniqueID, err)
		}
		entities = append(entities, &entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entity rows: %w", err)
	}
	return entities, nil
}

// DeleteEntity removes an entity row.
func (s *Store) DeleteEntity(uniqueID string) error {
	if _, err := s.db.Exec(`DELETE FROM entities WHERE unique_id = ?`, uniqueID); err != nil {
		return fmt.Errorf("deleting entity %s: %w", uniqueID, err)
	}
	return nil
}

// DeleteDevice removes a device row.
func (s *Store) DeleteDevice(domain, identifier string) error {
	if _, err := s.db.Exec(`DELETE FROM devices WHERE domain = ? AND identifier = ?`, domain, identifier); err != nil {
		return fmt.Errorf("deleting device %s/%s: %w", domain, identifier, err)
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

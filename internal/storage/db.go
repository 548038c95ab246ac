package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"medbill/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL,
  format TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'imported',
  importedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS definitions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sourceId INTEGER NOT NULL,
  rowNo INTEGER NOT NULL,
  serviceCategory TEXT NOT NULL,
  definition TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(sourceId, rowNo),
  FOREIGN KEY(sourceId) REFERENCES sources(id)
);

CREATE TABLE IF NOT EXISTS extractions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  definitionId INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL,
  rawResponse TEXT NOT NULL,
  recordJson TEXT NOT NULL,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(definitionId) REFERENCES definitions(id)
);

CREATE TABLE IF NOT EXISTS billing_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  extractionId INTEGER NOT NULL,
  serviceCategory TEXT NOT NULL,
  serviceCode TEXT NOT NULL,
  revenueCode TEXT NOT NULL,
  gender TEXT NOT NULL,
  age TEXT NOT NULL,
  diagnosisCode TEXT NOT NULL,
  pos TEXT NOT NULL,
  typeOfBill TEXT NOT NULL,
  modifier TEXT NOT NULL,
  minutes INTEGER NOT NULL,
  billedAmnt INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(extractionId) REFERENCES extractions(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  sourceId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(sourceId) REFERENCES sources(id)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertSource(path, format, hash, status string) (internal.SourceRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO sources (path, format, hash, status)
VALUES (?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
  path=excluded.path,
  format=excluded.format,
  updatedAt=CURRENT_TIMESTAMP
`, path, format, hash, status)
	if err != nil {
		return internal.SourceRow{}, err
	}

	row, err := d.GetSourceByHash(hash)
	if err != nil {
		return internal.SourceRow{}, err
	}
	if row == nil {
		return internal.SourceRow{}, errors.New("failed to upsert source")
	}
	return *row, nil
}

func (d *DB) GetSourceByHash(hash string) (*internal.SourceRow, error) {
	return d.getSource(`SELECT id, path, format, hash, status, importedAt FROM sources WHERE hash = ?`, hash)
}

func (d *DB) GetSourceByID(id int) (*internal.SourceRow, error) {
	return d.getSource(`SELECT id, path, format, hash, status, importedAt FROM sources WHERE id = ?`, id)
}

func (d *DB) getSource(query string, arg any) (*internal.SourceRow, error) {
	var row internal.SourceRow
	err := d.conn.QueryRow(query, arg).Scan(&row.ID, &row.Path, &row.Format, &row.Hash, &row.Status, &row.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListSourcesByStatus(status string, limit int) ([]internal.SourceRow, error) {
	rows, err := d.conn.Query(`
SELECT id, path, format, hash, status, importedAt
FROM sources WHERE status = ? ORDER BY id LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SourceRow
	for rows.Next() {
		var row internal.SourceRow
		if err := rows.Scan(&row.ID, &row.Path, &row.Format, &row.Hash, &row.Status, &row.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateSourceStatus(id int, status string) error {
	_, err := d.conn.Exec(`UPDATE sources SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

func (d *DB) ReplaceDefinitions(sourceID int, defs []internal.DefinitionRow) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
DELETE FROM billing_rows WHERE extractionId IN (
  SELECT e.id FROM extractions e JOIN definitions def ON def.id = e.definitionId WHERE def.sourceId = ?
)`, sourceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
DELETE FROM extractions WHERE definitionId IN (SELECT id FROM definitions WHERE sourceId = ?)`, sourceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM definitions WHERE sourceId = ?`, sourceID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO definitions (sourceId, rowNo, serviceCategory, definition)
VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, def := range defs {
		if _, err := stmt.Exec(sourceID, def.RowNo, def.ServiceCategory, def.Definition); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListDefinitionsBySource(sourceID int) ([]internal.DefinitionRow, error) {
	rows, err := d.conn.Query(`
SELECT id, sourceId, rowNo, serviceCategory, definition
FROM definitions WHERE sourceId = ? ORDER BY rowNo`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DefinitionRow
	for rows.Next() {
		var def internal.DefinitionRow
		if err := rows.Scan(&def.ID, &def.SourceID, &def.RowNo, &def.ServiceCategory, &def.Definition); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (d *DB) InsertExtraction(definitionID int, status internal.ExtractionStatus, rawResponse string, record internal.ExtractedRecord, errMsg string) (int, error) {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}

	_, err = d.conn.Exec(`
INSERT INTO extractions (definitionId, status, rawResponse, recordJson, error)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(definitionId) DO UPDATE SET
  status=excluded.status,
  rawResponse=excluded.rawResponse,
  recordJson=excluded.recordJson,
  error=excluded.error,
  createdAt=CURRENT_TIMESTAMP
`, definitionID, string(status), rawResponse, string(recordJSON), nullIfEmpty(errMsg))
	if err != nil {
		return 0, err
	}

	var id int
	err = d.conn.QueryRow(`SELECT id FROM extractions WHERE definitionId = ?`, definitionID).Scan(&id)
	return id, err
}

func (d *DB) InsertBillingRows(extractionID int, rows []internal.BillingRow) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM billing_rows WHERE extractionId = ?`, extractionID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO billing_rows (
  extractionId, serviceCategory, serviceCode, revenueCode, gender, age,
  diagnosisCode, pos, typeOfBill, modifier, minutes, billedAmnt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(
			extractionID, row.ServiceCategory, row.ServiceCode, row.RevenueCode, row.Gender, row.Age,
			row.DiagnosisCode, row.POS, row.TypeOfBill, row.Modifier, row.Minutes, row.BilledAmnt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBillingRowsBySource returns accumulated billing rows in processing
// order: definition row order first, resolved code order within it.
func (d *DB) GetBillingRowsBySource(sourceID int) ([]internal.BillingRow, error) {
	rows, err := d.conn.Query(`
SELECT b.serviceCategory, b.serviceCode, b.revenueCode, b.gender, b.age,
       b.diagnosisCode, b.pos, b.typeOfBill, b.modifier, b.minutes, b.billedAmnt
FROM billing_rows b
JOIN extractions e ON e.id = b.extractionId
JOIN definitions def ON def.id = e.definitionId
WHERE def.sourceId = ?
ORDER BY def.rowNo, b.id`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BillingRow
	for rows.Next() {
		var row internal.BillingRow
		if err := rows.Scan(
			&row.ServiceCategory, &row.ServiceCode, &row.RevenueCode, &row.Gender, &row.Age,
			&row.DiagnosisCode, &row.POS, &row.TypeOfBill, &row.Modifier, &row.Minutes, &row.BilledAmnt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, sourceID int, timings map[string]float64, counts internal.RunCounts) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, sourceId, timingsJson, countsJson)
VALUES (?, ?, ?, ?)`, traceID, sourceID, string(timingsJSON), string(countsJSON))
	return err
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

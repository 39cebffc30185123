package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// Table names for scan history.
const (
	scanRunsTable = "smellscan_scan_runs"
	findingsTable = "smellscan_findings"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables when migrations were never run.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{scanRunsTable, getCreateScanRunsQuery(backend)},
		{findingsTable, getCreateFindingsQuery(backend)},
	}
	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateScanRunsQuery returns the CREATE TABLE query for smellscan_scan_runs.
func getCreateScanRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(scanRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				scan_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_id VARCHAR(64),
				changeset_id VARCHAR(255),
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_files INT NOT NULL DEFAULT 0,
				total_findings INT NOT NULL DEFAULT 0,
				incomplete BOOLEAN NOT NULL DEFAULT FALSE,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				scan_id BIGSERIAL PRIMARY KEY,
				run_id TEXT,
				changeset_id TEXT,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_files INT NOT NULL DEFAULT 0,
				total_findings INT NOT NULL DEFAULT 0,
				incomplete BOOLEAN NOT NULL DEFAULT FALSE,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				scan_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT,
				changeset_id TEXT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_files INTEGER NOT NULL DEFAULT 0,
				total_findings INTEGER NOT NULL DEFAULT 0,
				incomplete INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateFindingsQuery returns the CREATE TABLE query for smellscan_findings.
func getCreateFindingsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(findingsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				scan_id BIGINT NOT NULL,
				smell_type VARCHAR(64) NOT NULL,
				category VARCHAR(32) NOT NULL,
				area VARCHAR(512) NOT NULL,
				first_file VARCHAR(512) NOT NULL,
				impact INT NOT NULL,
				risk INT NOT NULL,
				velocity INT NOT NULL,
				total INT NOT NULL,
				level VARCHAR(16) NOT NULL,
				recorded_at DATETIME(6) NOT NULL,
				evidence_count INT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				scan_id BIGINT NOT NULL,
				smell_type TEXT NOT NULL,
				category TEXT NOT NULL,
				area TEXT NOT NULL,
				first_file TEXT NOT NULL,
				impact INT NOT NULL,
				risk INT NOT NULL,
				velocity INT NOT NULL,
				total INT NOT NULL,
				level TEXT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL,
				evidence_count INT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				scan_id INTEGER NOT NULL,
				smell_type TEXT NOT NULL,
				category TEXT NOT NULL,
				area TEXT NOT NULL,
				first_file TEXT NOT NULL,
				impact INTEGER NOT NULL,
				risk INTEGER NOT NULL,
				velocity INTEGER NOT NULL,
				total INTEGER NOT NULL,
				level TEXT NOT NULL,
				recorded_at TEXT NOT NULL,
				evidence_count INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// disabled reports whether the store silently ignores calls.
func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// BeginScan creates a new scan run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginScan(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(scanRunsTable, hs.backend)
	start := formatTime(startTime, hs.backend)

	var scanID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING scan_id`, quotedTableName)
		err = hs.db.QueryRow(query, start, string(configJSON)).Scan(&scanID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = hs.db.Exec(query, start, string(configJSON))
		if err == nil {
			scanID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan run: %w", err)
	}
	return scanID, nil
}

// EndScan updates the scan run with completion data.
func (hs *HistoryStoreImpl) EndScan(scanID int64, endTime time.Time, run schema.ScanRun) error {
	if hs.disabled() {
		return nil
	}

	quotedTableName := quoteTableName(scanRunsTable, hs.backend)
	var raw any
	row := hs.db.QueryRow(rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE scan_id = ?`, quotedTableName), hs.backend), scanID)
	if err := row.Scan(&raw); err != nil {
		return fmt.Errorf("failed to get start_time for scan %d: %w", scanID, err)
	}
	startTime, err := parseTime(raw)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}

	update := rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, run_id = ?, changeset_id = ?,
		total_files = ?, total_findings = ?, incomplete = ? WHERE scan_id = ?`, quotedTableName), hs.backend)
	_, err = hs.db.Exec(update,
		formatTime(endTime, hs.backend), endTime.Sub(startTime).Milliseconds(), run.RunID, run.ChangeSetID,
		run.TotalFiles, run.TotalFindings, run.Incomplete, scanID)
	if err != nil {
		return fmt.Errorf("failed to update scan run: %w", err)
	}
	return nil
}

// RecordFindings stores the findings emitted by a scan in one transaction.
func (hs *HistoryStoreImpl) RecordFindings(scanID int64, findings []schema.Finding) error {
	if hs.disabled() || len(findings) == 0 {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(fmt.Sprintf(`
		INSERT INTO %s (scan_id, smell_type, category, area, first_file,
		                impact, risk, velocity, total, level, recorded_at, evidence_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quoteTableName(findingsTable, hs.backend)), hs.backend)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	recordedAt := formatTime(time.Now(), hs.backend)
	for _, f := range findings {
		area := f.Area
		if area == "" {
			area = schema.CommonDir(f.Files)
		}
		s := f.Severity
		if _, err := stmt.Exec(scanID, string(f.SmellType), string(f.Category), area, f.FirstFile(),
			s.Impact, s.Risk, s.Velocity, s.Total, string(s.Level), recordedAt, len(f.Evidence)); err != nil {
			return fmt.Errorf("failed to insert %s finding: %w", f.SmellType, err)
		}
	}
	return tx.Commit()
}

// CountRecurrences counts earlier findings of a smell type in an area since a point in time.
func (hs *HistoryStoreImpl) CountRecurrences(smell schema.SmellType, area string, since time.Time) (int, error) {
	if hs.disabled() {
		return 0, nil
	}
	query := rebind(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE smell_type = ? AND area = ? AND recorded_at >= ?`,
		quoteTableName(findingsTable, hs.backend)), hs.backend)
	var n int
	if err := hs.db.QueryRow(query, string(smell), area, formatTime(since, hs.backend)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recurrences: %w", err)
	}
	return n, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	runs := quoteTableName(scanRunsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRaw, oldestRaw any
		row := hs.db.QueryRow(fmt.Sprintf("SELECT scan_id, start_time FROM %s ORDER BY scan_id DESC LIMIT 1", runs))
		if err := row.Scan(&status.LastScanID, &lastRaw); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY scan_id ASC LIMIT 1", runs))
		if err := row.Scan(&oldestRaw); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		var err error
		if status.LastRunTime, err = parseTime(lastRaw); err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		if status.OldestRunTime, err = parseTime(oldestRaw); err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
	}

	for _, table := range []string{scanRunsTable, findingsTable} {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalFindings = int(status.TableSizes[findingsTable])
	return status, nil
}

// GetAllScanRuns retrieves all scan runs from the store.
func (hs *HistoryStoreImpl) GetAllScanRuns() ([]schema.ScanRunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT scan_id, run_id, changeset_id, start_time, end_time, run_duration_ms,
		total_files, total_findings, incomplete, config_params FROM %s ORDER BY scan_id`,
		quoteTableName(scanRunsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScanRunRecord
	for rows.Next() {
		var record schema.ScanRunRecord
		var runID, changeSetID sql.NullString
		var startRaw, endRaw any
		if err := rows.Scan(&record.ScanID, &runID, &changeSetID, &startRaw, &endRaw, &record.RunDurationMs,
			&record.TotalFiles, &record.TotalFindings, &record.Incomplete, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan scan run: %w", err)
		}
		record.RunID = runID.String
		record.ChangeSetID = changeSetID.String
		if record.StartTime, err = parseTime(startRaw); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if endRaw != nil {
			endTime, err := parseTime(endRaw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan runs: %w", err)
	}
	return results, nil
}

// GetAllFindings retrieves all recorded findings from the store.
func (hs *HistoryStoreImpl) GetAllFindings() ([]schema.FindingRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT scan_id, smell_type, category, area, first_file,
		impact, risk, velocity, total, level, recorded_at, evidence_count
		FROM %s ORDER BY scan_id, smell_type, area`, quoteTableName(findingsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FindingRecord
	for rows.Next() {
		var record schema.FindingRecord
		var recordedRaw any
		if err := rows.Scan(&record.ScanID, &record.SmellType, &record.Category, &record.Area, &record.FirstFile,
			&record.Impact, &record.Risk, &record.Velocity, &record.Total, &record.Level, &recordedRaw,
			&record.EvidenceCount); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		if record.RecordedAt, err = parseTime(recordedRaw); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}
	return results, nil
}

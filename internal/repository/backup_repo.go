package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// backupTables is the fixed export order; referenced tables come first so
// a restore can replay the export in sequence.
var backupTables = []string{
	"person",
	"session_type",
	"location",
	"session",
	"booking",
}

type BackupRepository struct {
	db DBTX
}

func NewBackupRepository(db DBTX) *BackupRepository {
	return &BackupRepository{db: db}
}

// Export serializes every table to JSON server-side. Password and
// temporary password hashes are never included.
func (r *BackupRepository) Export(ctx context.Context) (map[string]json.RawMessage, error) {
	queries := map[string]string{
		"person":       "SELECT COALESCE(json_agg(row_to_json(t)), '[]'::json) FROM (SELECT id, name, email, phone, roles FROM person ORDER BY id) t",
		"session_type": "SELECT COALESCE(json_agg(row_to_json(t)), '[]'::json) FROM (SELECT * FROM session_type ORDER BY id) t",
		"location":     "SELECT COALESCE(json_agg(row_to_json(t)), '[]'::json) FROM (SELECT * FROM location ORDER BY id) t",
		"session":      "SELECT COALESCE(json_agg(row_to_json(t)), '[]'::json) FROM (SELECT * FROM session ORDER BY id) t",
		"booking":      "SELECT COALESCE(json_agg(row_to_json(t)), '[]'::json) FROM (SELECT * FROM booking ORDER BY person_id, session_id) t",
	}

	export := make(map[string]json.RawMessage, len(backupTables))
	for _, table := range backupTables {
		var rows json.RawMessage
		if err := r.db.QueryRow(ctx, queries[table]).Scan(&rows); err != nil {
			return nil, fmt.Errorf("export %s: %w", table, err)
		}
		export[table] = rows
	}
	return export, nil
}

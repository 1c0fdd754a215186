package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/aquarium-controller/internal/actuator"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// RecordActuatorStates upserts a snapshot of every actuator in one transaction.
func RecordActuatorStates(db *sql.DB, states []actuator.State, at time.Time) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := RecordActuatorStatesWithTx(tx, states, at); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func RecordActuatorStatesWithTx(tx *sql.Tx, states []actuator.State, at time.Time) error {
	stamp := at.UTC().Format(time.RFC3339)
	for _, s := range states {
		_, err := tx.Exec(`INSERT INTO actuator_states (name, is_on, last_auto, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET is_on = excluded.is_on, last_auto = excluded.last_auto, updated_at = excluded.updated_at`,
			s.Name, toNull(s.IsOn), toNull(s.LastAuto), stamp)
		if err != nil {
			return fmt.Errorf("upsert actuator %s: %w", s.Name, err)
		}
	}
	return nil
}

// PruneActuatorStates removes rows for actuators that are no longer configured.
func PruneActuatorStates(db *sql.DB, keep []string) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}

	rows, err := tx.Query(`SELECT name FROM actuator_states`)
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("list actuator states: %w", err)
	}
	var stale []string
	wanted := make(map[string]bool, len(keep))
	for _, name := range keep {
		wanted[name] = true
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			RollbackTransaction(tx)
			return 0, fmt.Errorf("scan actuator name: %w", err)
		}
		if !wanted[name] {
			stale = append(stale, name)
		}
	}
	rows.Close()

	var removed int64
	for _, name := range stale {
		res, err := tx.Exec(`DELETE FROM actuator_states WHERE name = ?`, name)
		if err != nil {
			RollbackTransaction(tx)
			return 0, fmt.Errorf("delete actuator %s: %w", name, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, CommitTransaction(tx)
}

package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ActuatorState is the last recorded state of one actuator. Nil booleans are unknown.
type ActuatorState struct {
	Name      string
	IsOn      *bool
	LastAuto  *bool
	UpdatedAt time.Time
}

// GetActuatorStates returns every recorded actuator ordered by name.
func GetActuatorStates(db *sql.DB) ([]ActuatorState, error) {
	rows, err := db.Query(`SELECT name, is_on, last_auto, updated_at FROM actuator_states ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query actuator states: %w", err)
	}
	defer rows.Close()

	var states []ActuatorState
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

func GetActuatorState(db *sql.DB, name string) (ActuatorState, error) {
	row := db.QueryRow(`SELECT name, is_on, last_auto, updated_at FROM actuator_states WHERE name = ?`, name)
	s, err := scanState(row)
	if err != nil {
		return s, fmt.Errorf("failed to get actuator %s: %w", name, err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row scanner) (ActuatorState, error) {
	var (
		s         ActuatorState
		isOn      sql.NullBool
		lastAuto  sql.NullBool
		updatedAt string
	)
	if err := row.Scan(&s.Name, &isOn, &lastAuto, &updatedAt); err != nil {
		return s, fmt.Errorf("failed to scan actuator state: %w", err)
	}
	s.IsOn = fromNull(isOn)
	s.LastAuto = fromNull(lastAuto)

	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return s, fmt.Errorf("invalid updated_at for %s: %w", s.Name, err)
	}
	s.UpdatedAt = t
	return s, nil
}

func fromNull(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func toNull(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

package db

import (
	"fmt"
	"io"
)

func formatBool(b *bool) string {
	switch {
	case b == nil:
		return "unknown"
	case *b:
		return "on"
	default:
		return "off"
	}
}

// PrintStatesCLI writes the recorded actuator states as a table. A non-empty device limits
// the table to that actuator.
func PrintStatesCLI(dbPath, device string, w io.Writer) error {
	dbConn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	var states []ActuatorState
	if device == "" {
		states, err = GetActuatorStates(dbConn)
	} else {
		var s ActuatorState
		s, err = GetActuatorState(dbConn, device)
		states = []ActuatorState{s}
	}
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Fprintln(w, "No actuator states recorded")
		return nil
	}

	fmt.Fprintf(w, "%-16s %-8s %-10s %s\n", "NAME", "STATE", "SCHEDULE", "UPDATED")
	for _, s := range states {
		fmt.Fprintf(w, "%-16s %-8s %-10s %s\n", s.Name, formatBool(s.IsOn), formatBool(s.LastAuto), s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// ClearStatesCLI removes every recorded state. The controller repopulates the table on its next cycle.
func ClearStatesCLI(dbPath string) error {
	dbConn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	tx, err := StartTransaction(dbConn)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM actuator_states`); err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("clear actuator states: %w", err)
	}
	return CommitTransaction(tx)
}

package db

import "testing"

func TestMigrateSQLiteCreatesTables(t *testing.T) {
	conn, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn, DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Re-running is a no-op.
	if err := Migrate(conn, DriverSQLite); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	for _, table := range []string{"route_stops", "customer_addresses", "driver_positions", "geocode_cache"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

package db

import (
	"strings"
	"testing"
)

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector("oracle", "x")
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("err = %v, want unsupported driver", err)
	}
}

func TestDialector_Names(t *testing.T) {
	for _, name := range []string{"sqlite", "SQLite", "mysql"} {
		d, err := Dialector(name, "dsn")
		if err != nil {
			t.Errorf("Dialector(%q): %v", name, err)
			continue
		}
		if got := strings.ToLower(name); d.Name() != got {
			t.Errorf("Dialector(%q).Name() = %q, want %q", name, d.Name(), got)
		}
	}
}

func TestConnectAndMigrate_InMemory(t *testing.T) {
	gdb, err := Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer Close(gdb)

	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, model := range AllModels() {
		if !gdb.Migrator().HasTable(model) {
			t.Errorf("table for %T missing after migrate", model)
		}
	}

	// A second migrate is a no-op.
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
}

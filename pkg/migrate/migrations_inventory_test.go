package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_inventory.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no inventory migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE movement_type AS ENUM ('IN', 'OUT', 'ADJUST')",
		"CREATE TABLE IF NOT EXISTS inventory_batches",
		"quantity integer NOT NULL DEFAULT 0 CHECK (quantity >= 0)",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_batch_product_number ON inventory_batches (product_id, batch_number)",
		"CREATE TABLE IF NOT EXISTS inventory_movements",
		"resulting_qty integer NOT NULL CHECK (resulting_qty >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_movements_idempotency_key ON inventory_movements (idempotency_key)",
		"DROP TABLE IF EXISTS inventory_movements",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

package migrations

import "testing"

func TestMigrationsRegistered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(sorted))
	}
	if sorted[0].Name >= sorted[1].Name {
		t.Fatalf("migrations out of order: %s, %s", sorted[0].Name, sorted[1].Name)
	}
	if createQuizzesSQL == "" || createAttemptsSQL == "" {
		t.Fatalf("embedded SQL is empty")
	}
}

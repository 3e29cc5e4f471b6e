package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

const migrationsDir = "../../migrations"

func newMigratedDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(context.Background(), migrationsDir); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func seedGroupAndPrompt(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "INSERT INTO user_groups (id, name, type) VALUES (?, ?, ?)", "g1", "Smiths", "family"); err != nil {
		t.Fatalf("Failed to insert group: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO prompts (id, question, category) VALUES (?, ?, ?)", "p1", "What made you smile?", "Fun"); err != nil {
		t.Fatalf("Failed to insert prompt: %v", err)
	}
}

// TestDatabaseIntegration tests that migrations create the schema and are idempotent
func TestDatabaseIntegration(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	tables := []string{
		"user_groups", "users", "group_members", "memorials", "prompts", "daily_prompts",
		"prompt_name_usage", "group_prompt_queue", "question_category_preferences", "entries",
	}
	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	applied, err := db.RunMigrations(ctx, migrationsDir)
	if err != nil {
		t.Fatalf("Failed to re-run migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no migrations on second run, got %v", applied)
	}
}

// TestGeneralAssignmentUniqueness tests that the store rejects a second general assignment
func TestGeneralAssignmentUniqueness(t *testing.T) {
	db := newMigratedDB(t)
	seedGroupAndPrompt(t, db)
	ctx := context.Background()

	insert := "INSERT INTO daily_prompts (id, group_id, date, user_id, prompt_id) VALUES (?, ?, ?, ?, ?)"
	if _, err := db.ExecContext(ctx, insert, "a1", "g1", "2024-03-04", nil, "p1"); err != nil {
		t.Fatalf("Failed to insert first assignment: %v", err)
	}

	_, err := db.ExecContext(ctx, insert, "a2", "g1", "2024-03-04", nil, "p1")
	if !IsUniqueViolation(err) {
		t.Fatalf("Expected unique violation for second general assignment, got %v", err)
	}

	// Per-user overrides live beside the general row
	if _, err := db.ExecContext(ctx, insert, "a3", "g1", "2024-03-04", "u1", "p1"); err != nil {
		t.Fatalf("Failed to insert user override: %v", err)
	}
	_, err = db.ExecContext(ctx, insert, "a4", "g1", "2024-03-04", "u1", "p1")
	if !IsUniqueViolation(err) {
		t.Fatalf("Expected unique violation for second user override, got %v", err)
	}
}

// TestUsageLedgerUniqueness tests the ledger key
func TestUsageLedgerUniqueness(t *testing.T) {
	db := newMigratedDB(t)
	seedGroupAndPrompt(t, db)
	ctx := context.Background()

	insert := "INSERT INTO prompt_name_usage (id, group_id, prompt_id, variable_type, date_used, name_used) VALUES (?, ?, ?, ?, ?, ?)"
	if _, err := db.ExecContext(ctx, insert, "u1", "g1", "p1", "member_name", "2024-03-04", "Ann"); err != nil {
		t.Fatalf("Failed to insert usage: %v", err)
	}
	_, err := db.ExecContext(ctx, insert, "u2", "g1", "p1", "member_name", "2024-03-04", "Bob")
	if !IsUniqueViolation(err) {
		t.Fatalf("Expected unique violation, got %v", err)
	}
	if _, err := db.ExecContext(ctx, insert, "u3", "g1", "p1", "member_name", "2024-03-05", "Bob"); err != nil {
		t.Fatalf("Failed to insert usage for next day: %v", err)
	}
}

// TestDatabaseTransactions tests commit and rollback through Tx
func TestDatabaseTransactions(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO users (id, name) VALUES (?, ?)", "u1", "Ann"); err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	tx2, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}
	if _, err := tx2.ExecContext(ctx, "INSERT INTO users (id, name) VALUES (?, ?)", "u2", "Bob"); err != nil {
		tx2.Rollback()
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after commit and rollback, got %d", count)
	}
}

// TestConcurrentGeneralInserts tests that exactly one of many racing inserts wins
func TestConcurrentGeneralInserts(t *testing.T) {
	db := newMigratedDB(t)
	seedGroupAndPrompt(t, db)
	ctx := context.Background()

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := db.ExecContext(ctx,
				"INSERT INTO daily_prompts (id, group_id, date, user_id, prompt_id) VALUES (?, ?, ?, ?, ?)",
				fmt.Sprintf("a%d", i), "g1", "2024-03-04", nil, "p1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case IsUniqueViolation(err):
				conflicts++
			default:
				t.Errorf("Unexpected insert error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != callers-1 {
		t.Errorf("Expected 1 win and %d conflicts, got %d and %d", callers-1, wins, conflicts)
	}
}

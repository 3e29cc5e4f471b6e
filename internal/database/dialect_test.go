package database

import (
	"testing"
)

func TestDialectDriverAndSubdir(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		driver     string
		migrations string
	}{
		{name: "SQLite", dialect: NewSQLiteDialect(), driver: "sqlite3", migrations: "sqlite"},
		{name: "PostgreSQL", dialect: NewPostgresDialect(), driver: "postgres", migrations: "postgres"},
		{name: "PostgreSQL pgx", dialect: NewPgxDialect(), driver: "pgx", migrations: "postgres"},
		{name: "MySQL", dialect: NewMySQLDialect(), driver: "mysql", migrations: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.migrations {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.migrations)
			}
		})
	}
}

func TestDialectDSN(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		config   DialectConfig
		expected string
	}{
		{
			name:     "SQLite path",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "/tmp/prompts.db"},
			expected: "file:/tmp/prompts.db?_busy_timeout=5000&_txlock=immediate",
		},
		{
			name:     "PostgreSQL URL passthrough",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "postgres://localhost/prompts"},
			expected: "postgres://localhost/prompts",
		},
		{
			name:     "MySQL adds parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "user:pass@tcp(localhost:3306)/prompts"},
			expected: "user:pass@tcp(localhost:3306)/prompts?parseTime=true",
		},
		{
			name:     "MySQL appends to existing params",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "user:pass@tcp(localhost:3306)/prompts?charset=utf8mb4"},
			expected: "user:pass@tcp(localhost:3306)/prompts?charset=utf8mb4&parseTime=true",
		},
		{
			name:     "MySQL keeps explicit parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "user:pass@tcp(localhost:3306)/prompts?parseTime=false"},
			expected: "user:pass@tcp(localhost:3306)/prompts?parseTime=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.expected {
				t.Errorf("DSN() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUpsertClause(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		conflict []string
		update   []string
		expected string
	}{
		{
			name:     "SQLite update",
			dialect:  NewSQLiteDialect(),
			conflict: []string{"id"},
			update:   []string{"name", "type"},
			expected: " ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type",
		},
		{
			name:     "PostgreSQL do nothing",
			dialect:  NewPostgresDialect(),
			conflict: []string{"group_id", "user_id"},
			expected: " ON CONFLICT (group_id, user_id) DO NOTHING",
		},
		{
			name:     "MySQL update",
			dialect:  NewMySQLDialect(),
			conflict: []string{"id"},
			update:   []string{"weight"},
			expected: " ON DUPLICATE KEY UPDATE weight = VALUES(weight)",
		},
		{
			name:     "MySQL no-op update",
			dialect:  NewMySQLDialect(),
			conflict: []string{"group_id", "user_id"},
			expected: " ON DUPLICATE KEY UPDATE group_id = group_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.UpsertClause(tt.conflict, tt.update); got != tt.expected {
				t.Errorf("UpsertClause() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM prompts WHERE id = ?",
			expected: "SELECT * FROM prompts WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM prompts WHERE id = ?",
			expected: "SELECT * FROM prompts WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPgxDialect(),
			query:    "INSERT INTO daily_prompts (id, group_id, date) VALUES (?, ?, ?)",
			expected: "INSERT INTO daily_prompts (id, group_id, date) VALUES ($1, $2, $3)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "DELETE FROM group_prompt_queue WHERE id = ? AND group_id = ?",
			expected: "DELETE FROM group_prompt_queue WHERE id = ? AND group_id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (id TEXT);

-- second
CREATE INDEX idx_a ON a (id);
`
	stmts := splitStatements(content)
	if len(stmts) != 2 {
		t.Fatalf("splitStatements() returned %d statements, want 2: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id TEXT)" {
		t.Errorf("first statement = %q", stmts[0])
	}
}

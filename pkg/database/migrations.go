package database

import (
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds the full schema history. Versions are append-only;
// never edit an entry that has shipped.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "companies_and_users",
		SQL: `
			CREATE TABLE companies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				default_currency TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL,
				company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				manager_id INTEGER REFERENCES users(id),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX idx_users_company ON users(company_id);
			CREATE INDEX idx_users_manager ON users(manager_id);
		`,
	},
	{
		Version: 2,
		Name:    "expenses",
		SQL: `
			CREATE TABLE expenses (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				employee_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				category TEXT NOT NULL,
				amount REAL NOT NULL CHECK (amount >= 0),
				currency TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				expense_date DATE NOT NULL,
				status TEXT NOT NULL DEFAULT 'Pending',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX idx_expenses_employee ON expenses(employee_id);
			CREATE INDEX idx_expenses_status ON expenses(status);
		`,
	},
	{
		Version: 3,
		Name:    "approval_rules_and_steps",
		SQL: `
			CREATE TABLE approval_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX idx_approval_rules_company ON approval_rules(company_id);

			CREATE TABLE approval_steps (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				rule_id INTEGER NOT NULL REFERENCES approval_rules(id) ON DELETE CASCADE,
				step_number INTEGER NOT NULL,
				approver_role TEXT NOT NULL,
				UNIQUE (rule_id, step_number)
			);
		`,
	},
	{
		Version: 4,
		Name:    "expense_approvals",
		SQL: `
			CREATE TABLE expense_approvals (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				expense_id INTEGER NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
				step_id INTEGER NOT NULL REFERENCES approval_steps(id),
				approver_id INTEGER REFERENCES users(id),
				status TEXT NOT NULL DEFAULT 'Pending',
				comments TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (expense_id, step_id)
			);

			CREATE INDEX idx_expense_approvals_expense ON expense_approvals(expense_id);
			CREATE INDEX idx_expense_approvals_status ON expense_approvals(status);
		`,
	},
	{
		Version: 5,
		Name:    "vouchers",
		SQL: `
			CREATE TABLE vouchers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				expense_id INTEGER NOT NULL UNIQUE REFERENCES expenses(id) ON DELETE CASCADE,
				voucher_number TEXT NOT NULL,
				file_path TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
}

// Migrator handles database migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

// getAppliedMigrations returns the set of applied migration versions
func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations applies all pending migrations in version order
func (m *Migrator) RunMigrations() error {
	m.logger.Info("Starting database migrations")

	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending := make([]Migration, 0, len(migrations))
	for _, migration := range migrations {
		if applied[migration.Version] {
			m.logger.Debug("Skipping applied migration",
				zap.Int("version", migration.Version),
				zap.String("name", migration.Name))
			continue
		}
		pending = append(pending, migration)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})

	for _, migration := range pending {
		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations completed successfully")
	return nil
}

// applyMigration applies a single migration within a transaction
func (m *Migrator) applyMigration(migration Migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}

		return nil
	})
}

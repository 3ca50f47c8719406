package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'task_status') THEN
			CREATE TYPE task_status AS ENUM ('NEW', 'SCHEDULED', 'PENDING_APPROVAL', 'APPROVED', 'REJECTED', 'DONE');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'task_priority') THEN
			CREATE TYPE task_priority AS ENUM ('low', 'medium', 'high');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'user_role') THEN
			CREATE TYPE user_role AS ENUM ('ADMIN', 'HANDYMAN', 'INSPECTOR');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'problem_status') THEN
			CREATE TYPE problem_status AS ENUM ('OPEN', 'CONVERTED', 'DISMISSED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		external_id VARCHAR(64) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		address TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		first_name VARCHAR(128) NOT NULL,
		last_name VARCHAR(128) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		role user_role NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`,
	`CREATE TABLE IF NOT EXISTS counters (
		name VARCHAR(64) PRIMARY KEY,
		value BIGINT NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		ticket_number VARCHAR(32) NOT NULL UNIQUE,
		property_id UUID NOT NULL REFERENCES properties(id),
		property_name VARCHAR(255) NOT NULL,
		address TEXT NOT NULL,
		description TEXT,
		priority task_priority NOT NULL DEFAULT 'medium',
		status task_status NOT NULL DEFAULT 'NEW',
		handyman_id UUID REFERENCES users(id),
		created_by_id UUID NOT NULL,
		scheduled_timeslots JSONB NOT NULL DEFAULT '[]',
		image_urls JSONB NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_property_id ON tasks (property_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_handyman_id ON tasks (handyman_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_by_id ON tasks (created_by_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);`,
	`CREATE TABLE IF NOT EXISTS problems (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(255) NOT NULL,
		description TEXT,
		property_id UUID NOT NULL REFERENCES properties(id),
		priority task_priority NOT NULL DEFAULT 'medium',
		status problem_status NOT NULL DEFAULT 'OPEN',
		reported_by UUID NOT NULL,
		task_id UUID REFERENCES tasks(id) ON DELETE SET NULL,
		image_urls JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_problems_property_id ON problems (property_id);`,
	`CREATE INDEX IF NOT EXISTS idx_problems_reported_by ON problems (reported_by);`,
	`CREATE INDEX IF NOT EXISTS idx_problems_status ON problems (status);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_tasks_updated_at') THEN
			CREATE TRIGGER trg_tasks_updated_at
				BEFORE UPDATE ON tasks
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_properties_updated_at') THEN
			CREATE TRIGGER trg_properties_updated_at
				BEFORE UPDATE ON properties
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_problems_updated_at') THEN
			CREATE TRIGGER trg_problems_updated_at
				BEFORE UPDATE ON problems
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

package tasting

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		log.Printf("tasting-service: migrate pgcrypto: %v", err)
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS packages (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          code        TEXT NOT NULL UNIQUE,
          host_id     TEXT NOT NULL,
          name        TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("tasting-service: migrate packages: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS wines (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          package_id  uuid NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
          name        TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          position    INT NOT NULL,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE UNIQUE INDEX IF NOT EXISTS idx_wines_package_position
      ON wines(package_id, position)
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS slides (
          id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          wine_id      uuid NOT NULL REFERENCES wines(id) ON DELETE CASCADE,
          type         TEXT NOT NULL,
          section_type TEXT,
          position     INT NOT NULL,
          payload      JSONB NOT NULL DEFAULT '{}',
          created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	// Positions are unique per wine, not globally. The reorder handler
	// relies on this index to reject anything that slipped past its own
	// duplicate scan.
	if _, err := pool.Exec(ctx, `
      CREATE UNIQUE INDEX IF NOT EXISTS idx_slides_wine_position
      ON slides(wine_id, position)
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS sessions (
          id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          package_id uuid NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
          code       TEXT NOT NULL UNIQUE,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS participants (
          id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
          name       TEXT NOT NULL DEFAULT '',
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS responses (
          id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          session_id     uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
          participant_id uuid NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
          slide_id       uuid NOT NULL REFERENCES slides(id) ON DELETE CASCADE,
          answer         JSONB NOT NULL DEFAULT '{}',
          created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
          UNIQUE (participant_id, slide_id)
      )
    `); err != nil {
		return err
	}

	return nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if d.Name() == "sqlite" {
		var on int
		if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
			return fmt.Errorf("migrate sqlite: read foreign_keys: %w", err)
		}
		if on != 1 {
			return errors.New("migrate sqlite: foreign keys are disabled")
		}
	}
	for i, stmt := range d.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s statement %d: %w", d.Name(), i, err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  name          TEXT NOT NULL,
  email         TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role          TEXT NOT NULL DEFAULT 'user',
  phone         TEXT,
  avatar_url    TEXT,
  created_at    DATETIME NOT NULL,
  updated_at    DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS properties (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  title        TEXT NOT NULL,
  status       TEXT NOT NULL DEFAULT 'published',
  listing_type TEXT NOT NULL,
  price        TEXT NOT NULL,
  city         TEXT NOT NULL,
  featured     INTEGER NOT NULL DEFAULT 0,
  payload      TEXT NOT NULL,
  created_at   DATETIME NOT NULL,
  updated_at   DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties(owner_id)`,
	`CREATE TABLE IF NOT EXISTS leads (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
  user_id     INTEGER REFERENCES users(id) ON DELETE SET NULL,
  name        TEXT NOT NULL,
  email       TEXT NOT NULL,
  phone       TEXT,
  message     TEXT NOT NULL,
  status      TEXT NOT NULL DEFAULT 'new',
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_property ON leads(property_id)`,
	`CREATE TABLE IF NOT EXISTS wishlist (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
  created_at  DATETIME NOT NULL,
  UNIQUE (user_id, property_id)
)`,
	`CREATE TABLE IF NOT EXISTS reviews (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
  user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment     TEXT NOT NULL,
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL,
  UNIQUE (property_id, user_id)
)`,
	`CREATE TABLE IF NOT EXISTS amenities (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  name       TEXT NOT NULL UNIQUE,
  icon       TEXT,
  category   TEXT,
  created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS property_views (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
  user_id     INTEGER,
  ip          TEXT,
  viewed_at   DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_views_property ON property_views(property_id, viewed_at)`,
	`CREATE TABLE IF NOT EXISTS property_drafts (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  property_id INTEGER REFERENCES properties(id) ON DELETE SET NULL,
  title       TEXT NOT NULL DEFAULT '',
  payload     TEXT NOT NULL,
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analytics (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type  TEXT NOT NULL,
  property_id INTEGER,
  user_id     INTEGER,
  metadata    TEXT,
  created_at  DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics(event_type, created_at)`,
	`CREATE TABLE IF NOT EXISTS settings (
  setting_key TEXT PRIMARY KEY,
  value       TEXT NOT NULL,
  updated_at  DATETIME NOT NULL
)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id            BIGINT AUTO_INCREMENT PRIMARY KEY,
  name          VARCHAR(200) NOT NULL,
  email         VARCHAR(320) NOT NULL,
  password_hash VARCHAR(100) NOT NULL,
  role          VARCHAR(16) NOT NULL DEFAULT 'user',
  phone         VARCHAR(40),
  avatar_url    VARCHAR(1024),
  created_at    DATETIME NOT NULL,
  updated_at    DATETIME NOT NULL,
  UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS properties (
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  owner_id     BIGINT NOT NULL,
  title        VARCHAR(200) NOT NULL,
  status       VARCHAR(16) NOT NULL DEFAULT 'published',
  listing_type VARCHAR(8) NOT NULL,
  price        DECIMAL(14,2) NOT NULL,
  city         VARCHAR(120) NOT NULL,
  featured     TINYINT(1) NOT NULL DEFAULT 0,
  payload      JSON NOT NULL,
  created_at   DATETIME NOT NULL,
  updated_at   DATETIME NOT NULL,
  INDEX idx_properties_status (status),
  INDEX idx_properties_owner (owner_id),
  CONSTRAINT fk_properties_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS leads (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  property_id BIGINT NOT NULL,
  user_id     BIGINT NULL,
  name        VARCHAR(200) NOT NULL,
  email       VARCHAR(320) NOT NULL,
  phone       VARCHAR(40),
  message     TEXT NOT NULL,
  status      VARCHAR(16) NOT NULL DEFAULT 'new',
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL,
  INDEX idx_leads_property (property_id),
  CONSTRAINT fk_leads_property FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE,
  CONSTRAINT fk_leads_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS wishlist (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id     BIGINT NOT NULL,
  property_id BIGINT NOT NULL,
  created_at  DATETIME NOT NULL,
  UNIQUE KEY uq_wishlist (user_id, property_id),
  CONSTRAINT fk_wishlist_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
  CONSTRAINT fk_wishlist_property FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reviews (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  property_id BIGINT NOT NULL,
  user_id     BIGINT NOT NULL,
  rating      TINYINT NOT NULL,
  comment     TEXT NOT NULL,
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL,
  UNIQUE KEY uq_reviews (property_id, user_id),
  CONSTRAINT chk_reviews_rating CHECK (rating BETWEEN 1 AND 5),
  CONSTRAINT fk_reviews_property FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE,
  CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS amenities (
  id         BIGINT AUTO_INCREMENT PRIMARY KEY,
  name       VARCHAR(120) NOT NULL,
  icon       VARCHAR(64),
  category   VARCHAR(64),
  created_at DATETIME NOT NULL,
  UNIQUE KEY uq_amenities_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS property_views (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  property_id BIGINT NOT NULL,
  user_id     BIGINT NULL,
  ip          VARCHAR(64),
  viewed_at   DATETIME NOT NULL,
  INDEX idx_views_property (property_id, viewed_at),
  CONSTRAINT fk_views_property FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS property_drafts (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id     BIGINT NOT NULL,
  property_id BIGINT NULL,
  title       VARCHAR(200) NOT NULL DEFAULT '',
  payload     JSON NOT NULL,
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL,
  CONSTRAINT fk_drafts_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
  CONSTRAINT fk_drafts_property FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS analytics (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  event_type  VARCHAR(50) NOT NULL,
  property_id BIGINT NULL,
  user_id     BIGINT NULL,
  metadata    JSON NULL,
  created_at  DATETIME NOT NULL,
  INDEX idx_analytics_type (event_type, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS settings (
  setting_key VARCHAR(100) PRIMARY KEY,
  value       TEXT NOT NULL,
  updated_at  DATETIME NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

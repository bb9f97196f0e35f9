// Package postgres implements authcore.UserStore on top of a PostgreSQL users
// table reached through database/sql and the pgx stdlib driver.
//
// The store is read-only. It expects a table shaped like:
//
//	CREATE TABLE users (
//	    id            BIGSERIAL PRIMARY KEY,
//	    username      TEXT UNIQUE NOT NULL,
//	    email         TEXT NOT NULL DEFAULT '',
//	    password_hash TEXT NOT NULL,
//	    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
//	    deleted_at    TIMESTAMPTZ
//	);
package postgres

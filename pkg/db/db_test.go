package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"movebooking/pkg/config"
)

func TestConnStrings_PreferURLs(t *testing.T) {
	cfg := config.Config{DB: config.DBConfig{User: "u", Password: "p", Host: "h", Port: "5432", Name: "n"}}
	if got := runtimeConnString(cfg); got != "postgres://u:p@h:5432/n?sslmode=disable" {
		t.Fatalf("unexpected dsn: %s", got)
	}

	cfg.DatabaseURL = "postgres://pooler/db?pgbouncer=true"
	if got := migrationConnString(cfg); got != cfg.DatabaseURL {
		t.Fatalf("expected runtime url fallback, got %s", got)
	}

	cfg.DirectURL = "postgres://direct/db"
	if got := migrationConnString(cfg); got != cfg.DirectURL {
		t.Fatalf("expected direct url, got %s", got)
	}
}

func TestErrorClassifiers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(unique) || IsForeignKeyViolation(unique) {
		t.Fatalf("expected unique violation only")
	}
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("expected fk violation")
	}
	if !IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)) || IsNoRows(errors.New("other")) {
		t.Fatalf("no rows classification wrong")
	}
}

func TestSchemaState(t *testing.T) {
	cases := []struct {
		name    string
		version uint
		dirty   bool
		err     error
		want    string
		wantErr bool
	}{
		{"fresh database", 0, false, migrate.ErrNilVersion, "no migrations applied", false},
		{"clean", 1, false, nil, "version 1", false},
		{"dirty", 1, true, nil, "version 1 (dirty)", false},
		{"unreadable", 0, false, errors.New("relation schema_migrations is locked"), "", true},
	}
	for _, tc := range cases {
		got, err := schemaState(tc.version, tc.dirty, tc.err)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.wantErr && got.String() != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got.String())
		}
	}
}

package pgtable

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{Host: "localhost", Database: "app", User: "app"}
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", valid, false},
		{"url only", Config{URL: "postgres://localhost/app"}, false},
		{"missing host", Config{Database: "app", User: "app"}, true},
		{"missing database", Config{Host: "localhost", User: "app"}, true},
		{"missing user", Config{Host: "localhost", Database: "app"}, true},
		{"bad port", Config{Host: "localhost", Database: "app", User: "app", Port: 70000}, true},
		{"min above max", Config{URL: "postgres://localhost/app", MinConns: 5, MaxConns: 2}, true},
		{"negative pool", Config{URL: "postgres://localhost/app", MaxConns: -1}, true},
		{"long table name", Config{URL: "postgres://localhost/app", MigrationTable: string(make([]byte, 64))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConfig) {
				t.Errorf("Validate() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestConfigConnString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "defaults",
			config: Config{Host: "db", Database: "app", User: "me"},
			want:   "postgres://me@db:5432/app",
		},
		{
			name:   "password and sslmode",
			config: Config{Host: "db", Port: 6543, Database: "app", User: "me", Password: "p@ss", SSLMode: "disable"},
			want:   "postgres://me:p%40ss@db:6543/app?sslmode=disable",
		},
		{
			name:   "url wins",
			config: Config{URL: "postgres://other/x", Host: "db", Database: "app", User: "me"},
			want:   "postgres://other/x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.ConnString(); got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigPoolConfig(t *testing.T) {
	t.Parallel()

	pc, err := Config{Host: "db", Database: "app", User: "me", MaxConns: 7, MinConns: 2}.PoolConfig()
	if err != nil {
		t.Fatal(err)
	}
	if pc.MaxConns != 7 || pc.MinConns != 2 {
		t.Errorf("pool size = %d..%d, want 2..7", pc.MinConns, pc.MaxConns)
	}
	if pc.ConnConfig.Host != "db" || pc.ConnConfig.Database != "app" || pc.ConnConfig.User != "me" {
		t.Errorf("ConnConfig = %s@%s/%s", pc.ConnConfig.User, pc.ConnConfig.Host, pc.ConnConfig.Database)
	}

	if _, err := (Config{}).PoolConfig(); !errors.Is(err, ErrConfig) {
		t.Errorf("PoolConfig() error = %v, want ErrConfig", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var c Config
	if got := c.migrationTable(); got != DefaultMigrationTable {
		t.Errorf("migrationTable() = %q, want %q", got, DefaultMigrationTable)
	}
	if got := c.acquireTimeout(); got != DefaultAcquireTimeout {
		t.Errorf("acquireTimeout() = %v, want %v", got, DefaultAcquireTimeout)
	}
	c.AcquireTimeout = time.Second
	if got := c.acquireTimeout(); got != time.Second {
		t.Errorf("acquireTimeout() = %v, want 1s", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DBCONNSTR", "")
	t.Setenv("PGHOST", "envhost")
	t.Setenv("PGPORT", "5433")
	t.Setenv("PGDATABASE", "envdb")
	t.Setenv("PGUSER", "envuser")
	t.Setenv("PGPASSWORD", "")
	t.Setenv("PGSSLMODE", "require")

	c := ConfigFromEnv()
	want := Config{Host: "envhost", Port: 5433, Database: "envdb", User: "envuser", SSLMode: "require"}
	if c != want {
		t.Errorf("ConfigFromEnv() = %+v, want %+v", c, want)
	}
}

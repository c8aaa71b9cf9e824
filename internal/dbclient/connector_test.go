package dbclient

import (
	"errors"
	"strings"
	"testing"

	"passengerexport/internal/domain"
)

func TestParseRelationalURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantDriver Driver
		wantDSN    string
	}{
		{
			uri:        "tcp://djump-payment@localhost/djump_payment",
			wantDriver: DriverPostgres,
			wantDSN:    "postgres://djump-payment@localhost/djump_payment?sslmode=disable",
		},
		{
			uri:        "postgres://app:pw@db:5433/payments?sslmode=require",
			wantDriver: DriverPostgres,
			wantDSN:    "postgres://app:pw@db:5433/payments?sslmode=require",
		},
		{
			uri:        "postgresql://db/payments",
			wantDriver: DriverPostgres,
			wantDSN:    "postgres://db/payments?sslmode=disable",
		},
		{
			uri:        "sqlite:///var/data/users.db",
			wantDriver: DriverSQLite,
			wantDSN:    "/var/data/users.db?_pragma=busy_timeout(5000)",
		},
		{
			uri:        "file:users.db?mode=ro",
			wantDriver: DriverSQLite,
			wantDSN:    "file:users.db?mode=ro&_pragma=busy_timeout(5000)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseRelationalURI(tt.uri)
			if err != nil {
				t.Fatalf("ParseRelationalURI: %v", err)
			}
			if got.Driver != tt.wantDriver {
				t.Errorf("driver = %q, want %q", got.Driver, tt.wantDriver)
			}
			if got.DSN != tt.wantDSN {
				t.Errorf("dsn = %q, want %q", got.DSN, tt.wantDSN)
			}
		})
	}
}

func TestParseRelationalURI_MySQL(t *testing.T) {
	got, err := ParseRelationalURI("mysql://app:pw@db/payments")
	if err != nil {
		t.Fatalf("ParseRelationalURI: %v", err)
	}
	if got.Driver != DriverMySQL {
		t.Errorf("driver = %q", got.Driver)
	}
	if !strings.HasPrefix(got.DSN, "app:pw@tcp(db:3306)/payments?") {
		t.Errorf("dsn = %q", got.DSN)
	}
	for _, param := range []string{"parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(got.DSN, param) {
			t.Errorf("dsn %q missing %s", got.DSN, param)
		}
	}
}

func TestParseRelationalURI_Unsupported(t *testing.T) {
	for _, uri := range []string{"redis://localhost", "://bad"} {
		_, err := ParseRelationalURI(uri)
		if !errors.Is(err, domain.ErrConfig) {
			t.Errorf("ParseRelationalURI(%q) error = %v, want ErrConfig", uri, err)
		}
	}
}

func TestLookupQuery_IsParameterized(t *testing.T) {
	tests := map[Driver]string{
		DriverPostgres: `SELECT * FROM "Users" WHERE uid = $1`,
		DriverMySQL:    "SELECT * FROM `Users` WHERE uid = ?",
		DriverSQLite:   `SELECT * FROM "Users" WHERE uid = ?`,
	}
	for d, want := range tests {
		got := lookupQuery(d)
		if got != want {
			t.Errorf("lookupQuery(%s) = %q, want %q", d, got, want)
		}
		if strings.Contains(got, "'") {
			t.Errorf("lookupQuery(%s) should not embed literals", d)
		}
	}
}

package store

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"verify-ovpn/internal/model"
)

var testDB *sql.DB
var dsn = "root:static@tcp(127.0.0.1:3306)/verify_ovpn?parseTime=true"

func TestMain(m *testing.M) {
	var err error
	testDB, err = sql.Open("mysql", dsn)
	if err != nil {
		fmt.Printf("failed to connect to MariaDB: %v\n", err)
		os.Exit(0) // Skip tests if DB is not available
	}

	if err := testDB.Ping(); err != nil {
		fmt.Printf("MariaDB not reachable: %v\n", err)
		os.Exit(0) // Skip tests if DB is not reachable
	}

	testDB.Exec("DROP TABLE IF EXISTS verified_config")
	testDB.Exec("DROP TABLE IF EXISTS verify_run")
	code := m.Run()
	os.Exit(code)
}

func TestMariaDBRecordsSuccessesAndRun(t *testing.T) {
	s, err := NewMariaDB(dsn)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	outcome := model.Outcome{
		Config:    "a.ovpn",
		Target:    model.Target{Protocol: model.UDP, Endpoint: "192.0.2.1:1194"},
		Reachable: true,
		Duration:  42 * time.Millisecond,
	}
	if err := s.RecordSuccess(outcome); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.Finish(model.Tally{Total: 3, Successful: 1}); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	var name, endpoint string
	if err := testDB.QueryRow("SELECT config_name, endpoint FROM verified_config ORDER BY id DESC LIMIT 1").Scan(&name, &endpoint); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if name != "a.ovpn" || endpoint != "192.0.2.1:1194" {
		t.Errorf("unexpected row: %s %s", name, endpoint)
	}

	var total, successful int
	if err := testDB.QueryRow("SELECT total, successful FROM verify_run ORDER BY id DESC LIMIT 1").Scan(&total, &successful); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 3 || successful != 1 {
		t.Errorf("unexpected run summary: total=%d successful=%d", total, successful)
	}
}

func TestNewMariaDBErrors(t *testing.T) {
	if _, err := NewMariaDB("invalid-dsn"); err == nil {
		t.Errorf("expected error for invalid DSN")
	}
}

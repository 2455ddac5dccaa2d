package database

import (
	"strings"
	"testing"
)

func TestStatements(t *testing.T) {
	script := `-- header
CREATE TABLE a (
  id INT
);

-- between
CREATE TABLE b (id INT);
INSERT INTO b VALUES (1)`
	got := Statements(script)
	if len(got) != 3 {
		t.Fatalf("got %d statements: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "CREATE TABLE a") || strings.HasSuffix(got[0], ";") {
		t.Fatalf("first statement %q", got[0])
	}
	if got[2] != "INSERT INTO b VALUES (1)" {
		t.Fatalf("trailing statement %q", got[2])
	}
}

func TestEmbeddedSchemaParses(t *testing.T) {
	stmts := Statements(schema)
	if len(stmts) < 10 {
		t.Fatalf("schema has only %d statements", len(stmts))
	}
	for _, s := range stmts {
		if !strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS") {
			t.Fatalf("non-idempotent statement: %.40q", s)
		}
	}
}

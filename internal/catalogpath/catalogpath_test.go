package catalogpath

import (
	"errors"
	"testing"

	"catalogstore/internal/objectstore"
)

func testScheme() Scheme {
	return New("1", "my_db")
}

func TestLocationRoundTrip(t *testing.T) {
	s := testScheme()
	loc := s.Location("p1", 42, "my_table")
	if got, want := loc.String(), "1/my_db/data/p1/42/my_table.parquet"; got != want {
		t.Fatalf("Location() = %q, want %q", got, want)
	}

	partition, chunkID, table, err := s.Parse(loc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if partition != "p1" || chunkID != 42 || table != "my_table" {
		t.Errorf("Parse() = (%q, %d, %q), want (p1, 42, my_table)", partition, chunkID, table)
	}
}

func TestParseHappyPath(t *testing.T) {
	s := testScheme()
	key := objectstore.Path{"1", "my_db", "data", "p1", "42", "my_table.parquet"}
	partition, chunkID, table, err := s.Parse(key)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if partition != "p1" || chunkID != 42 || table != "my_table" {
		t.Errorf("got (%q, %d, %q)", partition, chunkID, table)
	}
}

func TestParseRejections(t *testing.T) {
	s := testScheme()

	cases := []struct {
		name string
		key  objectstore.Path
	}{
		{"empty path", objectstore.Path{}},
		{"too short", objectstore.Path{"1", "my_db"}},
		{"too long", objectstore.Path{"1", "my_db", "data", "p1", "42", "extra", "my_table.parquet"}},
		{"non-numeric chunk id", objectstore.Path{"1", "my_db", "data", "p1", "abc", "my_table.parquet"}},
		{"wrong data segment", objectstore.Path{"1", "my_db", "wrong", "p1", "42", "my_table.parquet"}},
		{"wrong db name", objectstore.Path{"1", "other_db", "data", "p1", "42", "my_table.parquet"}},
		{"wrong server id", objectstore.Path{"2", "my_db", "data", "p1", "42", "my_table.parquet"}},
		{"missing extension", objectstore.Path{"1", "my_db", "data", "p1", "42", "my_table"}},
		{"double extension", objectstore.Path{"1", "my_db", "data", "p1", "42", "my_table.parquet.tmp"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, _, err := s.Parse(c.key)
			if err == nil {
				t.Fatalf("Parse(%v) succeeded, want error", c.key)
			}
			if !errors.Is(err, ErrLocationParse) {
				t.Errorf("Parse(%v) error = %v, want wrapping ErrLocationParse", c.key, err)
			}
		})
	}
}

func TestTransactionKey(t *testing.T) {
	s := testScheme()
	key := s.TransactionKey(3, "abc-uuid")
	want := "1/my_db/transactions/3/abc-uuid.txn"
	if got := key.String(); got != want {
		t.Errorf("TransactionKey() = %q, want %q", got, want)
	}
}

func TestTransactionRevisionPrefix(t *testing.T) {
	s := testScheme()
	prefix := s.TransactionRevisionPrefix(3)
	want := "1/my_db/transactions/3"
	if got := prefix.String(); got != want {
		t.Errorf("TransactionRevisionPrefix() = %q, want %q", got, want)
	}
}

func TestIsParquetFile(t *testing.T) {
	if !IsParquetFile(objectstore.Path{"a", "b.parquet"}) {
		t.Error("expected .parquet file to match")
	}
	if IsParquetFile(objectstore.Path{"a", "b.txn"}) {
		t.Error("expected .txn file not to match")
	}
	if IsParquetFile(nil) {
		t.Error("expected empty path not to match")
	}
}

func TestParseTransactionKeyRoundTrip(t *testing.T) {
	s := testScheme()
	key := s.TransactionKey(5, "abc-uuid")
	rev, id, err := s.ParseTransactionKey(key)
	if err != nil {
		t.Fatalf("ParseTransactionKey: %v", err)
	}
	if rev != 5 || id != "abc-uuid" {
		t.Errorf("got (%d, %q), want (5, \"abc-uuid\")", rev, id)
	}
}

func TestParseTransactionKeyRejectsWrongShape(t *testing.T) {
	s := testScheme()
	_, _, err := s.ParseTransactionKey(objectstore.Path{"1", "my_db", "data", "3", "u.txn"})
	if err == nil {
		t.Fatal("expected error for wrong segment name")
	}
}

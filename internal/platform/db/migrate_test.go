package db

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/skinclinic/skinclinic/migrations"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"001_core.sql":     {Data: []byte("CREATE TABLE users (id UUID PRIMARY KEY);")},
		"002_booking.sql":  {Data: []byte("CREATE TABLE consultations (id UUID PRIMARY KEY);")},
		"003_payments.sql": {Data: []byte("CREATE TABLE payments (id UUID PRIMARY KEY);")},
	}

	migs, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[0].Name != "001_core.sql" {
		t.Errorf("unexpected first migration: %+v", migs[0])
	}
	if migs[0].SQL != "CREATE TABLE users (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migs[0].SQL)
	}
	if migs[2].Version != 3 {
		t.Errorf("expected version 3, got %d", migs[2].Version)
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_tables.sql": {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"005_middle.sql": {Data: []byte("SELECT 5;")},
	}
	migs, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	want := []int{1, 2, 5, 10}
	for i, v := range want {
		if migs[i].Version != v {
			t.Errorf("index %d: expected version %d, got %d", i, v, migs[i].Version)
		}
	}
}

func TestLoadMigrations_SkipsNonMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"001_core.sql":    {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
		"seed.sql":        {Data: []byte("SELECT 0;")},
		"abc_invalid.sql": {Data: []byte("SELECT 0;")},
		"embed.go":        {Data: []byte("package migrations")},
	}
	migs, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migs))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_core.sql":  {Data: []byte("SELECT 1;")},
		"001_other.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := NewMigrator(nil, fsys).LoadMigrations(); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}

func TestPending(t *testing.T) {
	migs := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := map[int]time.Time{1: time.Now()}

	got := Pending(migs, applied, 0)
	if len(got) != 2 || got[0].Version != 2 {
		t.Fatalf("expected versions 2,3 pending, got %+v", got)
	}

	got = Pending(migs, applied, 2)
	if len(got) != 1 || got[0].Version != 2 {
		t.Fatalf("expected only version 2 up to target, got %+v", got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) == 0 || migs[0].Version != 1 {
		t.Fatalf("expected embedded migrations starting at version 1, got %+v", migs)
	}
}

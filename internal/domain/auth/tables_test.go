package auth_test

import (
	"testing"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

func TestContentTableCatalog(t *testing.T) {
	t.Parallel()

	tables := domain.ContentTables()
	if len(tables) == 0 {
		t.Fatal("expected a non-empty catalog")
	}

	stringKeyed := map[string]bool{"image": true, "oldimage": true}
	for _, table := range tables {
		if table.Name == "" || table.IDColumn == "" {
			t.Fatalf("incomplete table entry %+v", table)
		}
		if stringKeyed[table.Name] != table.StringID {
			t.Fatalf("%s has wrong id kind: StringID=%v", table.Name, table.StringID)
		}
	}

	revision, ok := domain.ContentTableByName("revision")
	if !ok {
		t.Fatal("revision missing from the catalog")
	}
	if revision.ActorColumn != "" {
		t.Fatal("revision carries no actor column on this schema")
	}

	if _, ok := domain.ContentTableByName(domain.LogSearchTable); ok {
		t.Fatal("log_search is irregular and must stay outside the catalog")
	}

	if _, ok := domain.ContentTableByName("pagelinks"); ok {
		t.Fatal("unexpected table in the catalog")
	}
}

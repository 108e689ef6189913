package migrations

import "testing"

func TestMigrationsEmbedded(t *testing.T) {
	for _, name := range []string{"001_init.sql", "002_file_hash_index.sql"} {
		data, err := Files.ReadFile(name)
		if err != nil {
			t.Fatalf("expected embedded migration %s, got error: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("embedded migration %s is empty", name)
		}
	}
}

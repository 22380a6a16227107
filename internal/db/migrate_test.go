package db

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestListMigrationsSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_posts.sql", "0001_users.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := listMigrations(dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"0001_users.sql", "0002_posts.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
}

func TestFindMigrationsDirWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, migrationsDirName), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "cmd", "dondog")
	if err := os.MkdirAll(nested, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Chdir(nested)

	got, err := findMigrationsDir(migrationsDirName)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(filepath.Join(root, migrationsDirName))
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != resolved {
		t.Fatalf("expected %s, got %s", resolved, gotResolved)
	}
}

func TestOrDefault(t *testing.T) {
	if orDefault(0, 10) != 10 || orDefault(3, 10) != 3 {
		t.Fatalf("unexpected orDefault result")
	}
}

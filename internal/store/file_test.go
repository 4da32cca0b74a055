package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dropDatabas3/passguard/internal/policy"
	"github.com/dropDatabas3/passguard/internal/store"
)

func writeRoles(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileStore_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	writeRoles(t, path, `
roles:
  app_ro:
    min_length: 8
    require_special: false
  batch_user:
    log_only: true
`)
	fs, err := store.NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	ctx := context.Background()

	o, found, err := fs.RoleOverrides(ctx, "app_ro")
	if err != nil || !found {
		t.Fatalf("app_ro: found=%v err=%v", found, err)
	}
	eff := o.Apply(policy.Default())
	if eff.MinLength != 8 || eff.RequireSpecial {
		t.Fatalf("effective policy: %+v", eff)
	}
	// Inherited fields stay at the base values.
	if !eff.RequireUpper || !eff.RejectUsername || eff.LogOnly {
		t.Fatalf("effective policy: %+v", eff)
	}

	if _, found, err = fs.RoleOverrides(ctx, "nobody"); err != nil || found {
		t.Fatalf("unknown role: found=%v err=%v", found, err)
	}
}

func TestFileStore_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	writeRoles(t, path, "roles:\n  a:\n    min_length: 6\n")

	fs, err := store.NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	ctx := context.Background()
	o, _, _ := fs.RoleOverrides(ctx, "a")
	if o.MinLength == nil || *o.MinLength != 6 {
		t.Fatalf("initial: %+v", o)
	}

	// mtime granularity can be one second on some filesystems.
	writeRoles(t, path, "roles:\n  a:\n    min_length: 16\n")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	o, _, _ = fs.RoleOverrides(ctx, "a")
	if o.MinLength == nil || *o.MinLength != 16 {
		t.Fatalf("after edit: %+v", o)
	}
}

func TestFileStore_MissingFileFailsStartup(t *testing.T) {
	if _, err := store.NewFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileStore_BadYAMLFailsStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	writeRoles(t, path, "roles: [not a map")
	if _, err := store.NewFile(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestOverrides_ApplyAndIsZero(t *testing.T) {
	var o store.Overrides
	if !o.IsZero() {
		t.Fatal("zero overrides should report IsZero")
	}
	if got := o.Apply(policy.Default()); got != policy.Default() {
		t.Fatalf("empty overrides must not change base: %+v", got)
	}

	n := 4
	f := false
	o = store.Overrides{MinLength: &n, RejectUsername: &f}
	if o.IsZero() {
		t.Fatal("IsZero with fields set")
	}
	got := o.Apply(policy.Default())
	if got.MinLength != 4 || got.RejectUsername {
		t.Fatalf("apply: %+v", got)
	}
}

func TestNone_AlwaysMisses(t *testing.T) {
	var s store.None
	if _, found, err := s.RoleOverrides(context.Background(), "x"); found || err != nil {
		t.Fatalf("found=%v err=%v", found, err)
	}
}

package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, dir, name, compose string) {
	t.Helper()
	tplDir := filepath.Join(dir, name)
	if err := os.MkdirAll(tplDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tplDir, "docker-compose.yaml"), []byte(compose), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestResolverList(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "redis", "services: {}\n")
	writeTemplate(t, dir, "mysql", "services: {}\n")
	// A directory without a compose file is not a template.
	if err := os.MkdirAll(filepath.Join(dir, "notes"), 0700); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(dir, nil)
	names := r.List()
	if len(names) != 2 || names[0] != "mysql" || names[1] != "redis" {
		t.Errorf("List() = %v", names)
	}
}

func TestResolverExactMatch(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "redis", "services:\n  redis:\n    image: redis:7\n")

	r := NewResolver(dir, nil)
	tpl, err := r.Resolve(context.Background(), "redis")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tpl.Name != "redis" {
		t.Errorf("name = %q", tpl.Name)
	}
	if tpl.Compose == "" {
		t.Error("compose content empty")
	}
	if len(tpl.Patchable) == 0 {
		t.Error("expected default patchable fields")
	}
}

func TestResolverFuzzyMatch(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "rabbitmq", "services: {}\n")

	r := NewResolver(dir, nil)
	tpl, err := r.Resolve(context.Background(), "rabbit")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tpl.Name != "rabbitmq" {
		t.Errorf("fuzzy match = %q, want rabbitmq", tpl.Name)
	}
}

func TestResolverNotFound(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)

	_, err := r.Resolve(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestResolverDeclaredPatchable(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "kafka", "services: {}\n")
	patchable := "- port\n- cluster_id\n"
	if err := os.WriteFile(filepath.Join(dir, "kafka", "patchable.yaml"), []byte(patchable), 0600); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(dir, nil)
	tpl, err := r.Resolve(context.Background(), "kafka")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tpl.Patchable) != 2 || tpl.Patchable[0] != "port" || tpl.Patchable[1] != "cluster_id" {
		t.Errorf("patchable = %v", tpl.Patchable)
	}
}

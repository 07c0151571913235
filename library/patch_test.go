package library

import (
	"strings"
	"testing"
)

const redisCompose = `services:
  redis:
    image: redis:7
    ports:
      - "6379:6379"
    volumes:
      - ./data:/data
    environment:
      REDIS_PASSWORD: changeme
`

func TestPatchPassword(t *testing.T) {
	patched, warnings, err := Patch(redisCompose, DefaultPatchable, map[string]string{
		"password": "s3cret",
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if !strings.Contains(patched, "s3cret") {
		t.Errorf("patched document missing new password:\n%s", patched)
	}
	if strings.Contains(patched, "changeme") {
		t.Errorf("patched document still has old password:\n%s", patched)
	}
}

func TestPatchPort(t *testing.T) {
	patched, _, err := Patch(redisCompose, DefaultPatchable, map[string]string{
		"port": "6380",
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !strings.Contains(patched, "6380:6379") {
		t.Errorf("host port not rewritten:\n%s", patched)
	}
}

func TestPatchDataPath(t *testing.T) {
	patched, _, err := Patch(redisCompose, DefaultPatchable, map[string]string{
		"data_path": "/srv/redis",
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !strings.Contains(patched, "/srv/redis:/data") {
		t.Errorf("host path not rewritten:\n%s", patched)
	}
}

func TestPatchUnpatchableWarning(t *testing.T) {
	patched, warnings, err := Patch(redisCompose, []string{"port"}, map[string]string{
		"port":     "6380",
		"password": "nope",
		"replicas": "3",
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	// Undeclared overrides stay unapplied.
	if strings.Contains(patched, "nope") {
		t.Errorf("unpatchable override was applied:\n%s", patched)
	}
	if !strings.Contains(patched, "6380:6379") {
		t.Errorf("declared override not applied:\n%s", patched)
	}
}

func TestPatchIdempotent(t *testing.T) {
	overrides := map[string]string{
		"password":  "s3cret",
		"port":      "6380",
		"data_path": "/srv/redis",
	}

	once, _, err := Patch(redisCompose, DefaultPatchable, overrides)
	if err != nil {
		t.Fatalf("first Patch: %v", err)
	}
	twice, _, err := Patch(once, DefaultPatchable, overrides)
	if err != nil {
		t.Fatalf("second Patch: %v", err)
	}
	if once != twice {
		t.Errorf("patch not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestPatchEnvironmentListForm(t *testing.T) {
	compose := `services:
  db:
    image: mysql:8
    environment:
      - MYSQL_ROOT_PASSWORD=old
      - MYSQL_DATABASE=app
`
	patched, _, err := Patch(compose, DefaultPatchable, map[string]string{"password": "new"})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !strings.Contains(patched, "MYSQL_ROOT_PASSWORD=new") {
		t.Errorf("sequence-form env not rewritten:\n%s", patched)
	}
	if !strings.Contains(patched, "MYSQL_DATABASE=app") {
		t.Errorf("unrelated env entry was touched:\n%s", patched)
	}
}

func TestPatchInvalidYAML(t *testing.T) {
	if _, _, err := Patch("{not yaml: [", DefaultPatchable, map[string]string{"port": "1"}); err == nil {
		t.Error("expected parse error")
	}
}

// Package deploy performs Docker Compose deployments, locally and across
// cluster nodes.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dockhand/logging"

	"go.uber.org/zap"
)

// Result reports the outcome of a compose run with captured process output.
type Result struct {
	Success bool
	Message string
	Stdout  string
	Stderr  string
}

// Compose writes compose files under deployments/ in the data directory and
// runs docker compose there.
type Compose struct {
	dataDir string
}

func NewCompose(dataDir string) *Compose {
	return &Compose{dataDir: dataDir}
}

// Up writes composeYAML to deployments/<project>/docker-compose.yml and runs
// `docker compose up -d --remove-orphans` in that directory. A non-zero exit
// is reported in the Result, not as an error; errors are reserved for
// failures before the compose run starts.
func (c *Compose) Up(ctx context.Context, composeYAML, projectName string) (*Result, error) {
	projectDir := filepath.Join(c.dataDir, "deployments", SafeProjectName(projectName))
	if err := os.MkdirAll(projectDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	composePath := filepath.Join(projectDir, "docker-compose.yml")
	if err := os.WriteFile(composePath, []byte(composeYAML), 0600); err != nil {
		return nil, fmt.Errorf("failed to write compose file: %w", err)
	}
	logging.Named("deploy").Info("wrote compose file", zap.String("path", composePath))

	cmd := exec.CommandContext(ctx, "docker", "compose", "up", "-d", "--remove-orphans")
	cmd.Dir = projectDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		logging.Named("deploy").Error("local deployment failed",
			zap.String("project", projectName), zap.Error(err))
		result.Message = fmt.Sprintf("deployment failed: %v", err)
		return result, nil
	}

	logging.Named("deploy").Info("local deployment succeeded", zap.String("project", projectName))
	result.Success = true
	result.Message = fmt.Sprintf("service deployed, compose file at %s", composePath)
	return result, nil
}

// SafeProjectName reduces a project name to characters safe for a directory
// name, falling back to "default" when nothing survives.
func SafeProjectName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		return "default"
	}
	return safe
}

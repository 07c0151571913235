package cluster

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	connectTimeout = 10 * time.Second
	commandTimeout = 5 * time.Minute
)

// SSHError wraps any failure talking to a remote node.
type SSHError struct {
	Node string
	Op   string
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("%s failed on node %s: %v", e.Op, e.Node, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// Executor runs commands on cluster nodes over SSH using key-based auth.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

// CheckConnection verifies SSH connectivity and authentication to a node.
func (e *Executor) CheckConnection(node Node) error {
	client, err := e.dial(node)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return &SSHError{Node: node.Name, Op: "session", Err: err}
	}
	defer session.Close()
	return nil
}

// Execute runs a command on the node and returns stdout. A non-zero exit
// status is an SSHError carrying the captured stderr.
func (e *Executor) Execute(node Node, command string) (string, error) {
	client, err := e.dial(node)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", &SSHError{Node: node.Name, Op: "session", Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err := <-done:
		if err != nil {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = err.Error()
			}
			return "", &SSHError{Node: node.Name, Op: "command", Err: fmt.Errorf("%s", detail)}
		}
		return strings.TrimSpace(stdout.String()), nil
	case <-time.After(commandTimeout):
		session.Close()
		return "", &SSHError{Node: node.Name, Op: "command", Err: fmt.Errorf("timed out after %s", commandTimeout)}
	}
}

// WriteFile streams content to a remote path. The parent directory must
// already exist.
func (e *Executor) WriteFile(node Node, remotePath, content string) error {
	client, err := e.dial(node)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return &SSHError{Node: node.Name, Op: "session", Err: err}
	}
	defer session.Close()

	session.Stdin = strings.NewReader(content)
	var stderr bytes.Buffer
	session.Stderr = &stderr
	if err := session.Run(fmt.Sprintf("cat > %s", remotePath)); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return &SSHError{Node: node.Name, Op: "copy", Err: fmt.Errorf("%s", detail)}
	}
	return nil
}

// DeployCompose pushes a compose document to the node and brings the project
// up, detached, removing orphaned containers.
func (e *Executor) DeployCompose(node Node, composeYAML, projectName string) error {
	remoteDir := fmt.Sprintf("~/.dockhand/deployments/%s", projectName)
	if _, err := e.Execute(node, fmt.Sprintf("mkdir -p %s", remoteDir)); err != nil {
		return err
	}
	if err := e.WriteFile(node, remoteDir+"/docker-compose.yml", composeYAML); err != nil {
		return err
	}
	upCmd := fmt.Sprintf("cd %s && docker compose up -d --remove-orphans", remoteDir)
	if _, err := e.Execute(node, upCmd); err != nil {
		return err
	}
	return nil
}

func (e *Executor) dial(node Node) (*ssh.Client, error) {
	signer, err := loadSigner(node)
	if err != nil {
		return nil, &SSHError{Node: node.Name, Op: "auth", Err: err}
	}

	cfg := &ssh.ClientConfig{
		User:            node.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}

	port := node.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(node.Host, fmt.Sprintf("%d", port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, &SSHError{Node: node.Name, Op: "connect", Err: err}
	}
	return client, nil
}

// loadSigner parses the node's configured private key, falling back to the
// user's default identity files when no key path is set.
func loadSigner(node Node) (ssh.Signer, error) {
	candidates := []string{node.KeyPath}
	if node.KeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("no SSH key configured and no home directory: %w", err)
		}
		candidates = []string{
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"),
		}
	}

	var lastErr error
	for _, path := range candidates {
		keyData, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			lastErr = fmt.Errorf("failed to parse SSH key %s: %w", path, err)
			continue
		}
		return signer, nil
	}
	return nil, fmt.Errorf("no usable SSH key: %w", lastErr)
}

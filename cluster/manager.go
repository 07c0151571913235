// Package cluster manages named groups of remote Docker hosts and runs
// commands on them over SSH. Cluster membership lives in a YAML registry
// under the config directory, with one cluster selected as current.
package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"dockhand/config"

	"gopkg.in/yaml.v3"
)

// Node is one remote Docker host in a cluster.
type Node struct {
	Name    string `yaml:"name"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port,omitempty"`
	User    string `yaml:"user"`
	Role    string `yaml:"role"`
	KeyPath string `yaml:"key_path,omitempty"`
	Status  string `yaml:"status,omitempty"`
}

// Node status values recorded at add time.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
	StatusUnknown = "Unknown"
)

type clusterEntry struct {
	Nodes []Node `yaml:"nodes"`
}

type registryFile struct {
	CurrentCluster string                  `yaml:"current_cluster"`
	Clusters       map[string]clusterEntry `yaml:"clusters"`
}

// Manager is the persistent cluster registry.
type Manager struct {
	mu   sync.Mutex
	path string
	data registryFile
}

// LoadManager opens the clusters registry from the default config location.
func LoadManager() (*Manager, error) {
	return LoadManagerFromPath(filepath.Join(config.GetConfigDir(), "clusters.yaml"))
}

func LoadManagerFromPath(path string) (*Manager, error) {
	m := &Manager{
		path: path,
		data: registryFile{
			CurrentCluster: "default",
			Clusters:       map[string]clusterEntry{"default": {}},
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read clusters registry: %w", err)
	}
	if err := yaml.Unmarshal(raw, &m.data); err != nil {
		return nil, fmt.Errorf("failed to parse clusters registry: %w", err)
	}
	if m.data.Clusters == nil {
		m.data.Clusters = map[string]clusterEntry{"default": {}}
	}
	if m.data.CurrentCluster == "" {
		m.data.CurrentCluster = "default"
	}
	return m, nil
}

// CurrentName returns the name of the active cluster.
func (m *Manager) CurrentName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.CurrentCluster
}

// Nodes returns a copy of the current cluster's node list.
func (m *Manager) Nodes() []Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.data.Clusters[m.data.CurrentCluster]
	return append([]Node(nil), entry.Nodes...)
}

// Node finds a node in the current cluster by name.
func (m *Manager) Node(name string) (Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.data.Clusters[m.data.CurrentCluster].Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// ClusterNames lists all registered clusters, sorted, with the current one
// identifiable via CurrentName.
func (m *Manager) ClusterNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.data.Clusters))
	for name := range m.data.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateCluster registers a new empty cluster.
func (m *Manager) CreateCluster(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data.Clusters[name]; exists {
		return fmt.Errorf("cluster %q already exists", name)
	}
	m.data.Clusters[name] = clusterEntry{}
	return m.save()
}

// SwitchCluster changes the current cluster selector.
func (m *Manager) SwitchCluster(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data.Clusters[name]; !exists {
		return fmt.Errorf("cluster %q not found", name)
	}
	m.data.CurrentCluster = name
	return m.save()
}

// AddNode adds a node to the current cluster, replacing any existing node of
// the same name. The node's status should be set by the caller after a
// connectivity check.
func (m *Manager) AddNode(node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.data.CurrentCluster
	entry := m.data.Clusters[current]

	kept := entry.Nodes[:0]
	for _, n := range entry.Nodes {
		if n.Name != node.Name {
			kept = append(kept, n)
		}
	}
	entry.Nodes = append(kept, node)
	m.data.Clusters[current] = entry
	return m.save()
}

// RemoveNode deletes a node from the current cluster by name.
func (m *Manager) RemoveNode(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.data.CurrentCluster
	entry := m.data.Clusters[current]

	kept := entry.Nodes[:0]
	found := false
	for _, n := range entry.Nodes {
		if n.Name == name {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return fmt.Errorf("node %q not found in cluster %q", name, current)
	}
	entry.Nodes = kept
	m.data.Clusters[current] = entry
	return m.save()
}

func (m *Manager) save() error {
	if err := config.EnsureDir(filepath.Dir(m.path)); err != nil {
		return err
	}
	raw, err := yaml.Marshal(&m.data)
	if err != nil {
		return fmt.Errorf("failed to serialize clusters registry: %w", err)
	}
	if err := os.WriteFile(m.path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write clusters registry: %w", err)
	}
	return nil
}

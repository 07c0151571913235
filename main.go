package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dockhand/agent"
	"dockhand/cluster"
	"dockhand/config"
	"dockhand/deploy"
	"dockhand/library"
	"dockhand/logging"
	"dockhand/memory"
	"dockhand/model"
	"dockhand/provider"
	"dockhand/storage"
	"dockhand/tools"
)

const Version = "v0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, unknown, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	for _, key := range unknown {
		fmt.Fprintf(os.Stderr, "Warning: unknown config key %q in %s\n", key, config.GetSettingsFilePath())
	}

	if err := logging.Init(cfg.DataDir(), cfg.Debug); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	if len(args) == 0 {
		return runChat(cfg)
	}

	switch args[0] {
	case "chat":
		return runChat(cfg)
	case "provider":
		return runProvider(args[1:])
	case "node":
		return runNode(args[1:])
	case "cluster":
		return runCluster(args[1:])
	case "library":
		return runLibrary(cfg, args[1:])
	case "memory":
		return runMemory(cfg, args[1:])
	case "session":
		return runSession(cfg, args[1:])
	case "version":
		fmt.Println("dockhand", Version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try: chat, provider, cluster, node, library, memory, session, version)", args[0])
	}
}

// runChat is the interactive loop: read an instruction, run it through the
// orchestrator, repeat. Ctrl-C cancels the in-flight model call only.
func runChat(cfg *config.Settings) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	active, err := registry.Current()
	if err != nil {
		return fmt.Errorf("%w (add one with: dockhand provider add)", err)
	}
	prov, err := provider.New(active)
	if err != nil {
		return err
	}

	rules, err := config.LoadRules()
	if err != nil {
		return err
	}

	clusters, err := cluster.LoadManager()
	if err != nil {
		return err
	}

	sessions, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		return err
	}
	session := resumeOrNewSession(sessions)

	lib := newResolver(cfg)
	toolRegistry := tools.NewRegistry()
	tools.RegisterBuiltins(toolRegistry, tools.Deps{
		Compose:  deploy.NewCompose(cfg.DataDir()),
		Clusters: clusters,
		SSH:      cluster.NewExecutor(),
		Library:  lib,
	})
	executor := tools.NewExecutor(toolRegistry, terminalConfirmer{}, cfg.ToolTimeout())

	mem := openMemory(cfg, active)
	if mem != nil {
		defer mem.Close()
	}

	orch := agent.New(agent.Config{
		Provider: prov,
		Registry: toolRegistry,
		Executor: executor,
		Memory:   memoryOrNil(mem),
		Library:  lib,
		Rules:    rules,
		Session:  session,
		Sessions: sessions,
		Settings: cfg,
		Stream: func(chunk string) {
			fmt.Print(chunk)
		},
	})

	fmt.Printf("dockhand %s — provider %s (%s). Type a request, /reload to re-read rules, /quit to exit.\n",
		Version, active.Name, prov.GetModel())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case line == "/reload":
			if err := rules.Reload(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to reload rules: %v\n", err)
			} else {
				fmt.Println("Rules reloaded.")
			}
			continue
		}

		runInstruction(orch, line)
		if session.ID != "" {
			if err := sessions.SaveCurrentSessionID(session.ID); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record current session: %v\n", err)
			}
		}
	}
}

func runInstruction(orch *agent.Orchestrator, instruction string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := orch.Run(ctx, instruction)
	fmt.Println()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Println("Request cancelled.")
	default:
		var exceeded *agent.LoopExceededError
		if errors.As(err, &exceeded) {
			fmt.Printf("%v\n", exceeded)
			if exceeded.LastObservation != "" {
				fmt.Printf("Last observation: %s\n", exceeded.LastObservation)
			}
			for _, step := range exceeded.Plan.Steps {
				fmt.Printf("  - %s (%s)\n", step.Tool, step.State)
			}
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func runProvider(args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: dockhand provider add|switch|list")
	}

	switch args[0] {
	case "add":
		p, err := promptProfile()
		if err != nil {
			return err
		}
		if err := registry.Add(p); err != nil {
			return err
		}
		fmt.Printf("Provider %q added.\n", p.Name)
		return nil
	case "switch":
		if len(args) < 2 {
			return fmt.Errorf("usage: dockhand provider switch <name>")
		}
		if err := registry.Switch(args[1]); err != nil {
			return err
		}
		fmt.Printf("Switched to provider %q.\n", args[1])
		return nil
	case "list":
		for _, p := range registry.List() {
			marker := " "
			if p.Active {
				marker = "*"
			}
			fmt.Printf("%s %-20s %-10s %s\n", marker, p.Name, p.Type, p.Model)
		}
		return nil
	default:
		return fmt.Errorf("unknown provider command %q", args[0])
	}
}

func runNode(args []string) error {
	mgr, err := cluster.LoadManager()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: dockhand node add|remove|list")
	}

	switch args[0] {
	case "add":
		if len(args) < 4 {
			return fmt.Errorf("usage: dockhand node add <name> <host> <user> [role] [key_path]")
		}
		node := cluster.Node{Name: args[1], Host: args[2], User: args[3], Role: "worker"}
		if len(args) > 4 {
			node.Role = args[4]
		}
		if len(args) > 5 {
			node.KeyPath = args[5]
		}

		if err := cluster.NewExecutor().CheckConnection(node); err != nil {
			node.Status = cluster.StatusOffline
			fmt.Printf("Warning: connectivity check failed: %v\n", err)
		} else {
			node.Status = cluster.StatusOnline
		}
		if err := mgr.AddNode(node); err != nil {
			return err
		}
		fmt.Printf("Node %q added to cluster %q (status: %s).\n", node.Name, mgr.CurrentName(), node.Status)
		return nil
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: dockhand node remove <name>")
		}
		if err := mgr.RemoveNode(args[1]); err != nil {
			return err
		}
		fmt.Printf("Node %q removed.\n", args[1])
		return nil
	case "list":
		nodes := mgr.Nodes()
		if len(nodes) == 0 {
			fmt.Printf("No nodes in cluster %q.\n", mgr.CurrentName())
			return nil
		}
		fmt.Printf("Nodes in cluster %q:\n", mgr.CurrentName())
		for _, n := range nodes {
			fmt.Printf("  %-15s %-20s %-10s %-8s %s\n", n.Name, n.Host, n.User, n.Role, n.Status)
		}
		return nil
	default:
		return fmt.Errorf("unknown node command %q", args[0])
	}
}

func runCluster(args []string) error {
	mgr, err := cluster.LoadManager()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: dockhand cluster create|switch|list")
	}

	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: dockhand cluster create <name>")
		}
		if err := mgr.CreateCluster(args[1]); err != nil {
			return err
		}
		fmt.Printf("Cluster %q created and selected.\n", args[1])
		return nil
	case "switch":
		if len(args) < 2 {
			return fmt.Errorf("usage: dockhand cluster switch <name>")
		}
		if err := mgr.SwitchCluster(args[1]); err != nil {
			return err
		}
		fmt.Printf("Switched to cluster %q.\n", args[1])
		return nil
	case "list":
		current := mgr.CurrentName()
		for _, name := range mgr.ClusterNames() {
			marker := " "
			if name == current {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
		return nil
	default:
		return fmt.Errorf("unknown cluster command %q", args[0])
	}
}

func runSession(cfg *config.Settings, args []string) error {
	sessions, err := storage.NewSessionStorage(cfg.DataDir())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: dockhand session list|delete")
	}

	switch args[0] {
	case "list":
		list, err := sessions.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}
		current, _ := sessions.LoadCurrentSessionID()
		for _, s := range list {
			marker := " "
			if s.ID == current {
				marker = "*"
			}
			name := s.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%s %s  %s  %s\n", marker, s.ID, s.UpdatedAt.Format("2006-01-02 15:04"), name)
		}
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: dockhand session delete <id>")
		}
		if err := sessions.Delete(args[1]); err != nil {
			return err
		}
		fmt.Printf("Session %s deleted.\n", args[1])
		return nil
	default:
		return fmt.Errorf("unknown session command %q", args[0])
	}
}

func runLibrary(cfg *config.Settings, args []string) error {
	lib := newResolver(cfg)
	if len(args) == 0 {
		return fmt.Errorf("usage: dockhand library update|list")
	}

	switch args[0] {
	case "update":
		fmt.Printf("Updating template library from %s...\n", cfg.LibraryRemote)
		if err := lib.Refresh(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Library updated. Templates stored in %s\n", lib.Dir())
		return nil
	case "list":
		names := lib.List()
		if len(names) == 0 {
			fmt.Println("No templates available. Run: dockhand library update")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	default:
		return fmt.Errorf("unknown library command %q", args[0])
	}
}

func runMemory(cfg *config.Settings, args []string) error {
	if len(args) == 0 || args[0] != "clear" {
		return fmt.Errorf("usage: dockhand memory clear")
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	active, _ := registry.Current()
	mem := openMemory(cfg, active)
	if mem == nil {
		return fmt.Errorf("memory store unavailable")
	}
	defer mem.Close()

	if err := mem.Purge(); err != nil {
		return err
	}
	fmt.Println("Memory store cleared.")
	return nil
}

// openMemory opens the vector store, degrading to nil (no memory) when the
// embedding backend or database cannot be set up.
func openMemory(cfg *config.Settings, active config.Profile) *memory.Store {
	embedder, err := memory.NewEmbedder(cfg, active)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: memory disabled: %v\n", err)
		return nil
	}
	store, err := memory.Open(filepath.Join(cfg.DataDir(), "memory.db"), embedder, memory.Options{
		ChunkRunes:   cfg.EmbedChunkRunes,
		EmbedTimeout: cfg.EmbedTimeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: memory disabled: %v\n", err)
		return nil
	}
	return store
}

// memoryOrNil avoids handing a typed-nil *memory.Store to the agent.Memory
// interface.
func memoryOrNil(store *memory.Store) agent.Memory {
	if store == nil {
		return nil
	}
	return store
}

func newResolver(cfg *config.Settings) *library.Resolver {
	dir := filepath.Join(cfg.DataDir(), "library")
	return library.NewResolver(dir, &library.Remote{
		URL:    cfg.LibraryRemote,
		Mirror: cfg.LibraryMirror,
		Dir:    dir,
	})
}

func resumeOrNewSession(sessions *storage.SessionStorage) *storage.Session {
	if id, err := sessions.LoadCurrentSessionID(); err == nil && id != "" {
		if session, err := sessions.Load(id); err == nil {
			return session
		}
	}
	return &storage.Session{}
}

// terminalConfirmer asks on stdin before a gated tool runs.
type terminalConfirmer struct{}

func (terminalConfirmer) Confirm(call model.ToolCall, description string) bool {
	fmt.Printf("\nAllow tool %q? %s [y/N] ", call.Name, description)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func promptProfile() (config.Profile, error) {
	reader := bufio.NewReader(os.Stdin)
	ask := func(label string) (string, error) {
		fmt.Printf("%s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	var p config.Profile
	var err error
	if p.Name, err = ask("Profile name"); err != nil {
		return p, err
	}
	if p.Type, err = ask("Type (openai/anthropic/ollama/deepseek/openrouter)"); err != nil {
		return p, err
	}
	if p.BaseURL, err = ask("Base URL (empty for default)"); err != nil {
		return p, err
	}
	if p.APIKey, err = ask("API key (empty for none)"); err != nil {
		return p, err
	}
	if p.Model, err = ask("Model"); err != nil {
		return p, err
	}
	if p.Name == "" || p.Type == "" {
		return p, fmt.Errorf("profile name and type are required")
	}
	return p, nil
}

package tools

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"dockhand/cluster"
	"dockhand/deploy"
	"dockhand/library"
	"dockhand/provider"
	"dockhand/sysinfo"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Deps carries the subsystems the built-in tools operate on.
type Deps struct {
	Compose  *deploy.Compose
	Clusters *cluster.Manager
	SSH      *cluster.Executor
	Library  *library.Resolver
}

// RegisterBuiltins populates the registry with the standard tool catalog.
func RegisterBuiltins(r *Registry, deps Deps) {
	r.Register(Descriptor{
		Name:        "check_port",
		Description: "Check whether a TCP port on the local host is available or already in use.",
		Schema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"port": map[string]any{
					"type":        "integer",
					"description": "TCP port number to check",
				},
			},
			Required: []string{"port"},
		},
		Handler: checkPort,
	})

	r.Register(Descriptor{
		Name:        "execute_command",
		Description: "Execute a shell command on the local system. Use this for checking system status, reading files, etc.",
		Schema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Shell command to run",
				},
			},
			Required: []string{"command"},
		},
		RequiresConfirmation: true,
		Handler:              executeCommand,
	})

	r.Register(Descriptor{
		Name:        "deploy_service",
		Description: "Deploy a single-node service using Docker Compose.",
		Schema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"yaml_content": map[string]any{
					"type":        "string",
					"description": "Full content of docker-compose.yml",
				},
				"project_name": map[string]any{
					"type":        "string",
					"description": "Name of the project (folder name)",
				},
			},
			Required: []string{"yaml_content", "project_name"},
		},
		RequiresConfirmation: true,
		Handler:              deployService(deps.Compose),
	})

	r.Register(Descriptor{
		Name:        "deploy_cluster_service",
		Description: "Deploy a multi-node service across the current cluster. Takes a plan mapping node names to compose file content.",
		Schema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"plan_content": map[string]any{
					"type":        "object",
					"description": "Mapping of node name to docker-compose.yml content",
				},
				"project_name": map[string]any{
					"type":        "string",
					"description": "Name of the project",
				},
			},
			Required: []string{"plan_content", "project_name"},
		},
		RequiresConfirmation: true,
		Handler:              deployClusterService(deps.Clusters, deps.SSH),
	})

	r.Register(Descriptor{
		Name:        "add_cluster_node",
		Description: "Register a remote Docker host in the current cluster and verify SSH connectivity.",
		Schema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Node name",
				},
				"host": map[string]any{
					"type":        "string",
					"description": "Host address",
				},
				"user": map[string]any{
					"type":        "string",
					"description": "SSH user",
				},
				"role": map[string]any{
					"type":        "string",
					"description": "Node role, e.g. worker or manager",
				},
				"key_path": map[string]any{
					"type":        "string",
					"description": "Path to the SSH private key",
				},
			},
			Required: []string{"name", "host", "user"},
		},
		RequiresConfirmation: true,
		Handler:              addClusterNode(deps.Clusters, deps.SSH),
	})

	r.Register(Descriptor{
		Name:        "list_templates",
		Description: "List the available deployment templates in the local library.",
		Schema: mcptypes.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Handler: listTemplates(deps.Library),
	})

	r.Register(Descriptor{
		Name:        "fetch_template",
		Description: "Fetch the Docker Compose template for a service by name, optionally customizing its patchable fields (e.g. password, port, data_path).",
		Schema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"service": map[string]any{
					"type":        "string",
					"description": "Service name, e.g. redis, mysql, nginx",
				},
				"overrides": map[string]any{
					"type":        "object",
					"description": "Field overrides to apply to the template, keyed by patchable field name",
				},
			},
			Required: []string{"service"},
		},
		Handler: fetchTemplate(deps.Library),
	})

	r.Register(Descriptor{
		Name:        "system_info",
		Description: "Collect current host information: OS, IP, Docker state and listening ports.",
		Schema: mcptypes.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			return sysinfo.Collect(ctx), nil
		},
	})
}

func checkPort(_ context.Context, params map[string]any) (string, error) {
	port := intParam(params, "port")
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("port %d out of range", port)
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Sprintf("Port %d is in use.", port), nil
	}
	ln.Close()
	return fmt.Sprintf("Port %d is available.", port), nil
}

func executeCommand(ctx context.Context, params map[string]any) (string, error) {
	command, _ := params["command"].(string)
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w", err)
	}
	return string(out), nil
}

func deployService(compose *deploy.Compose) Handler {
	return func(ctx context.Context, params map[string]any) (string, error) {
		yamlContent, _ := params["yaml_content"].(string)
		projectName, _ := params["project_name"].(string)

		// Models sometimes wrap compose content in a markdown fence.
		result, err := compose.Up(ctx, provider.CleanYAMLFence(yamlContent), projectName)
		if err != nil {
			return "", err
		}
		if !result.Success {
			return result.Stderr, fmt.Errorf("%s", result.Message)
		}
		return fmt.Sprintf("Success: %s\n%s", result.Message, result.Stdout), nil
	}
}

func deployClusterService(mgr *cluster.Manager, ssh *cluster.Executor) Handler {
	return func(ctx context.Context, params map[string]any) (string, error) {
		planRaw, _ := params["plan_content"].(map[string]any)
		projectName, _ := params["project_name"].(string)

		plan := make(deploy.ClusterPlan, len(planRaw))
		for node, content := range planRaw {
			yamlContent, ok := content.(string)
			if !ok {
				return "", fmt.Errorf("plan entry for node %q is not a string", node)
			}
			plan[node] = provider.CleanYAMLFence(yamlContent)
		}
		if len(plan) == 0 {
			return "", fmt.Errorf("deployment plan is empty")
		}

		result, err := deploy.DeployCluster(mgr, ssh, plan, projectName)
		if err != nil {
			return "", err
		}
		if result.Failed == 0 {
			return fmt.Sprintf("Cluster deployment success! (%d nodes)", result.Succeeded), nil
		}
		return "", fmt.Errorf("cluster deployment partial failure: %d succeeded, %d failed: %s",
			result.Succeeded, result.Failed, strings.Join(result.Errors, "; "))
	}
}

func addClusterNode(mgr *cluster.Manager, ssh *cluster.Executor) Handler {
	return func(_ context.Context, params map[string]any) (string, error) {
		node := cluster.Node{
			Name:    stringParam(params, "name"),
			Host:    stringParam(params, "host"),
			User:    stringParam(params, "user"),
			Role:    stringParam(params, "role"),
			KeyPath: stringParam(params, "key_path"),
		}
		if node.Role == "" {
			node.Role = "worker"
		}

		if err := ssh.CheckConnection(node); err != nil {
			node.Status = cluster.StatusOffline
		} else {
			node.Status = cluster.StatusOnline
		}

		if err := mgr.AddNode(node); err != nil {
			return "", err
		}
		return fmt.Sprintf("Node %q added to cluster %q (status: %s).",
			node.Name, mgr.CurrentName(), node.Status), nil
	}
}

func listTemplates(lib *library.Resolver) Handler {
	return func(_ context.Context, _ map[string]any) (string, error) {
		names := lib.List()
		if len(names) == 0 {
			return "No templates available. Run a library update to fetch the template repository.", nil
		}
		return "Available templates:\n" + strings.Join(names, "\n"), nil
	}
}

func fetchTemplate(lib *library.Resolver) Handler {
	return func(ctx context.Context, params map[string]any) (string, error) {
		service, _ := params["service"].(string)
		tpl, err := lib.Resolve(ctx, service)
		if err != nil {
			return "", err
		}

		overridesRaw, _ := params["overrides"].(map[string]any)
		if len(overridesRaw) == 0 {
			return fmt.Sprintf("Template %q:\n%s", tpl.Name, tpl.Compose), nil
		}

		overrides := make(map[string]string, len(overridesRaw))
		for key, value := range overridesRaw {
			overrides[key] = fmt.Sprintf("%v", value)
		}
		patched, warnings, err := library.Patch(tpl.Compose, tpl.Patchable, overrides)
		if err != nil {
			return "", fmt.Errorf("failed to customize template %q: %w", tpl.Name, err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Template %q (customized):\n%s", tpl.Name, patched)
		for _, w := range warnings {
			fmt.Fprintf(&b, "\nWarning: %s", w)
		}
		return b.String(), nil
	}
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// intParam reads an integer parameter, accepting the float64 form produced by
// JSON decoding.
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

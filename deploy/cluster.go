package deploy

import (
	"fmt"
	"strings"

	"dockhand/cluster"
	"dockhand/logging"

	"go.uber.org/zap"
)

// ClusterPlan maps node names to the compose document each node should run.
type ClusterPlan map[string]string

// ClusterResult summarizes a multi-node deployment.
type ClusterResult struct {
	Succeeded int
	Failed    int
	Errors    []string
}

// PreflightError aborts a cluster deployment before anything is applied: one
// or more target nodes failed the connectivity check.
type PreflightError struct {
	FailedNodes []string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("cluster deployment aborted, unreachable nodes: %s",
		strings.Join(e.FailedNodes, ", "))
}

// DeployCluster applies a per-node compose plan to the current cluster. Every
// target node must pass an SSH connectivity check before any node is touched;
// otherwise the deployment aborts with a PreflightError listing the failures.
// After a clean pre-flight, per-node failures are collected rather than
// stopping the rollout.
func DeployCluster(mgr *cluster.Manager, exec *cluster.Executor, plan ClusterPlan, projectName string) (*ClusterResult, error) {
	log := logging.Named("deploy")
	log.Info("starting cluster deployment",
		zap.String("project", projectName), zap.Int("nodes", len(plan)))

	nodes := make(map[string]cluster.Node, len(plan))
	var failed []string
	for nodeName := range plan {
		node, ok := mgr.Node(nodeName)
		if !ok {
			log.Warn("node not in current cluster", zap.String("node", nodeName))
			continue
		}
		if err := exec.CheckConnection(node); err != nil {
			log.Warn("pre-flight check failed", zap.String("node", nodeName), zap.Error(err))
			failed = append(failed, nodeName)
			continue
		}
		nodes[nodeName] = node
	}
	if len(failed) > 0 {
		return nil, &PreflightError{FailedNodes: failed}
	}

	result := &ClusterResult{}
	for nodeName, composeYAML := range plan {
		node, ok := nodes[nodeName]
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("node %q not found in cluster %q", nodeName, mgr.CurrentName()))
			continue
		}
		if err := exec.DeployCompose(node, composeYAML, SafeProjectName(projectName)); err != nil {
			log.Error("node deployment failed", zap.String("node", nodeName), zap.Error(err))
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("node %q: %v", nodeName, err))
			continue
		}
		result.Succeeded++
	}

	log.Info("cluster deployment finished",
		zap.Int("succeeded", result.Succeeded), zap.Int("failed", result.Failed))
	return result, nil
}

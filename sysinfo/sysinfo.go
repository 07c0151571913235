// Package sysinfo collects host context for the model prompt: OS, internal
// IP, Docker state and listening ports. Collection is best-effort; anything
// that fails to probe is simply omitted.
package sysinfo

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const maxListLines = 10

// Collect returns a formatted snapshot of the host, suitable for embedding in
// a system prompt. It is re-collected fresh for every model call so the model
// sees the current container and port state.
func Collect(ctx context.Context) string {
	var info []string

	info = append(info, fmt.Sprintf("OS: %s %s (%s)", runtime.GOOS, kernelRelease(ctx), runtime.GOARCH))

	if ip := internalIP(); ip != "" {
		info = append(info, "Internal IP: "+ip)
	}

	if ver, err := runCommand(ctx, "docker", "--version"); err == nil {
		info = append(info, "Docker: "+ver)
		if containers, err := runCommand(ctx, "docker", "ps",
			"--format", "table {{.Names}}\t{{.Image}}\t{{.Ports}}"); err == nil && containers != "" {
			info = append(info, "", "[Running Docker Containers]", truncateLines(containers))
		}
	} else {
		info = append(info, "Docker: Not detected")
	}

	if ports := listeningPorts(ctx); ports != "" {
		info = append(info, "", "[Listening Ports (Host)]", ports)
	}

	return strings.Join(info, "\n")
}

func kernelRelease(ctx context.Context) string {
	if out, err := runCommand(ctx, "uname", "-r"); err == nil {
		return out
	}
	return "unknown"
}

// internalIP finds the host's outbound interface address without sending any
// traffic.
func internalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		if host, err := os.Hostname(); err == nil {
			if addrs, err := net.LookupHost(host); err == nil && len(addrs) > 0 {
				return addrs[0]
			}
		}
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}

func listeningPorts(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "sh", "-c",
		fmt.Sprintf("lsof -i -P -n | grep LISTEN | head -n %d", maxListLines)).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func truncateLines(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxListLines {
		return s
	}
	kept := strings.Join(lines[:maxListLines], "\n")
	return fmt.Sprintf("%s\n... (%d more)", kept, len(lines)-maxListLines)
}

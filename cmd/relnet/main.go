package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/shurlinet/relnet/internal/peerengine"
	"github.com/shurlinet/relnet/pkg/netcore"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X main.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" -o relnet ./cmd/relnet
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// peerEngineFactory wires the one concrete Peer Engine this module ships
// into every Manager a CLI command constructs.
var peerEngineFactory netcore.EngineFactory = peerengine.New

func runtimeGoVersion() string { return runtime.Version() }

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "connect":
		runConnect(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printVersion() {
	fmt.Printf("relnet %s (%s) built %s\n", version, commit, buildDate)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: relnet <command> [options]")
	fmt.Println()
	fmt.Println("  serve [--config path] [--port N]         Run a session manager until interrupted")
	fmt.Println("  connect <host:port> [--config path]      Connect to a running relnet, then disconnect")
	fmt.Println("           [--payload text] [--wait 5s]")
	fmt.Println()
	fmt.Println("  config validate [--config path]          Validate config")
	fmt.Println("  config show     [--config path]          Show resolved config")
	fmt.Println("  config rollback [--config path]          Restore last-known-good config")
	fmt.Println()
	fmt.Println("  version                                  Show version information")
	fmt.Println()
	fmt.Println("Without --config, relnet searches: ./relnet.yaml, ~/.config/relnet/config.yaml, /etc/relnet/config.yaml")
}

// Package cmd provides CLI commands for Selah.
//
// Commands:
//   - ask: One-shot scripture retrieval from the terminal
//   - chat: Interactive conversation with Bubble Tea TUI
//   - serve: HTTP API server with SSE streaming
//   - mcp: Model Context Protocol server exposing the retrieval strategies
//   - sessions: List and delete stored conversations
//
// Signal handling and graceful shutdown are implemented for all
// long-running commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/selahapp/selah/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point for the Selah CLI application.
func Execute() error {
	// Logging goes to stderr: stdout carries answers in ask mode and
	// JSON-RPC in mcp mode.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "ask":
		return runAsk()
	case "chat":
		return runChat()
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "sessions":
		return runSessions()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Selah - Scripture for what you are feeling")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  selah ask \"question\"   One-shot answer (-e feeling search, -n limit)")
	fmt.Println("  selah chat             Start interactive conversation")
	fmt.Println("  selah serve [addr]     Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  selah mcp              Start MCP server (for Claude Desktop/Cursor)")
	fmt.Println("  selah sessions         List stored conversations")
	fmt.Println("  selah sessions delete <id>")
	fmt.Println("  selah --version        Show version information")
	fmt.Println("  selah --help           Show this help")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /help                  Show available commands")
	fmt.Println("  /clear                 Clear the screen")
	fmt.Println("  /exit, /quit           Exit Selah")
	fmt.Println()
	fmt.Println("Shortcuts:")
	fmt.Println("  Ctrl+D                 Exit Selah")
	fmt.Println("  Ctrl+C                 Cancel the current response")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required for the default provider")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/selahapp/selah")
}

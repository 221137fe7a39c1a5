// flowforge-cli is a command-line client for the FlowForge HTTP
// surface: start workflows, list and inspect instances, and
// signal a waiting instance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/client"
)

var (
	baseURL string
	token   string
)

func main() {
	flag.StringVar(&baseURL, "url", os.Getenv("FLOWFORGE_URL"), "orchestrator base URL (or set FLOWFORGE_URL)")
	flag.StringVar(&token, "token", os.Getenv("FLOWFORGE_TOKEN"), "bearer token (or set FLOWFORGE_TOKEN)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "start":
		runStart(cmdArgs)
	case "list":
		runList(cmdArgs)
	case "get":
		runGet(cmdArgs)
	case "signal":
		runSignal(cmdArgs)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`flowforge-cli - FlowForge orchestrator client

Usage:
  flowforge-cli [flags] <command> [args]

Flags:
  -url string     Orchestrator base URL (or set FLOWFORGE_URL)
  -token string   Bearer token (or set FLOWFORGE_TOKEN)

Commands:
  start <type> <json-input>   Start a workflow of the given registered type
  list [status]               List workflow instances, optionally filtered by status
  get <workflowId>            Show one instance's full history
  signal <workflowId> <signal> [json-payload]
                               Resume a waiting instance
  help                        Show this help message

Examples:
  flowforge-cli -url http://localhost:8080 start order-fulfillment '{"amount":42}'
  flowforge-cli -url http://localhost:8080 list compensated
  flowforge-cli -url http://localhost:8080 get wf_01h...
  flowforge-cli -url http://localhost:8080 signal wf_01h... go '{"approved":true}'`)
}

func newClient() *client.Client {
	if baseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url flag or FLOWFORGE_URL required")
		os.Exit(1)
	}
	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(baseURL, opts...)
}

func runStart(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: workflow type required")
		os.Exit(1)
	}
	input := flowforge.Bag{}
	if len(args) >= 2 {
		if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid JSON input: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := newClient().StartWorkflow(ctx, args[0], input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting workflow: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Started %s\n", res.WorkflowID)
	fmt.Printf("Type:   %s\n", res.Type)
	fmt.Printf("Status: %s\n", res.Status)
}

func runList(args []string) {
	var status string
	if len(args) > 0 {
		status = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := newClient().ListWorkflows(ctx, status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing workflows: %v\n", err)
		os.Exit(1)
	}
	if res.Count == 0 {
		fmt.Println("No workflows found.")
		return
	}

	fmt.Printf("%-32s %-24s %-14s %-20s\n", "ID", "TYPE", "STATUS", "UPDATED")
	fmt.Println(strings.Repeat("-", 92))
	for _, wf := range res.Workflows {
		fmt.Printf("%-32s %-24s %-14s %-20s\n",
			truncate(wf.WorkflowID, 32), truncate(wf.Type, 24), wf.Status,
			wf.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func runGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: workflow id required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := newClient().GetWorkflow(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching workflow: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Workflow: %s\n", res.Workflow.ID)
	fmt.Printf("Type:     %s\n", res.Workflow.Type)
	fmt.Printf("Status:   %s\n", res.Workflow.Status)
	if res.Workflow.CurrentStep != "" {
		fmt.Printf("Current:  %s\n", res.Workflow.CurrentStep)
	}
	if res.Workflow.Error != "" {
		fmt.Printf("Error:    %s (at %s)\n", res.Workflow.Error, res.Workflow.FailedStep)
	}

	if len(res.Steps) > 0 {
		fmt.Printf("\nSteps (%d):\n", len(res.Steps))
		for _, s := range res.Steps {
			fmt.Printf("  - %-20s [%s]\n", s.StepName, s.Status)
		}
	}
	if len(res.Compensations) > 0 {
		fmt.Printf("\nCompensations (%d):\n", len(res.Compensations))
		for _, c := range res.Compensations {
			fmt.Printf("  - %-20s result=%s executed=%v\n", c.CompensationName, c.Result, c.Executed)
		}
	}
}

func runSignal(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: workflow id and signal name required")
		os.Exit(1)
	}
	payload := flowforge.Bag{}
	if len(args) >= 3 {
		if err := json.Unmarshal([]byte(args[2]), &payload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid JSON payload: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := newClient().SignalWorkflow(ctx, args[0], args[1], payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error signaling workflow: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Signal sent.")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

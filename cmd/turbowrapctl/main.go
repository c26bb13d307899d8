// turbowrapctl is a thin CLI that submits review and fix requests to a
// running turbowrapd instance over HTTP.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turbowrap/turbowrap/pkg/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var daemonURL string

	rootCmd := &cobra.Command{
		Use:     "turbowrapctl",
		Short:   "Submit review and fix requests to a turbowrapd instance",
		Version: version.Full(),
	}
	rootCmd.PersistentFlags().StringVar(&daemonURL, "daemon-url", "http://localhost:8080", "turbowrapd base URL")

	var (
		reviewDir      string
		workspacePath  string
		includeFunc    bool
		challengerOn   bool
	)
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Submit a review request",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"task_id":        fmt.Sprintf("ctl-review-%d", time.Now().UnixNano()),
				"source":         map[string]any{"dir": reviewDir},
				"workspace_path": workspacePath,
				"options": map[string]any{
					"include_functional": includeFunc,
					"challenger_enabled": challengerOn,
				},
			}
			return postJSON(cmd.Context(), daemonURL+"/reviews", payload)
		},
	}
	reviewCmd.Flags().StringVar(&reviewDir, "dir", ".", "Directory to review")
	reviewCmd.Flags().StringVar(&workspacePath, "workspace-path", "", "Monorepo workspace path prefix")
	reviewCmd.Flags().BoolVar(&includeFunc, "include-functional", false, "Include the functional-analyst reviewer role")
	reviewCmd.Flags().BoolVar(&challengerOn, "challenger", true, "Value sent as options.challenger_enabled (the daemon runs the challenger loop either way)")

	var (
		repositoryID string
		issuesPath   string
		push         bool
	)
	fixCmd := &cobra.Command{
		Use:   "fix",
		Short: "Submit a fix request for a set of accepted issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(issuesPath)
			if err != nil {
				return fmt.Errorf("read issues file: %w", err)
			}
			var issues []map[string]any
			if err := json.Unmarshal(raw, &issues); err != nil {
				return fmt.Errorf("parse issues file: %w", err)
			}

			payload := map[string]any{
				"task_id":       fmt.Sprintf("ctl-fix-%d", time.Now().UnixNano()),
				"repository_id": repositoryID,
				"issues":        issues,
				"push":          push,
			}
			return postJSON(cmd.Context(), daemonURL+"/fixes", payload)
		},
	}
	fixCmd.Flags().StringVar(&repositoryID, "repository-id", "", "Repository identifier known to turbowrapd")
	fixCmd.Flags().StringVar(&issuesPath, "issues", "", "Path to a JSON file of accepted issues")
	fixCmd.Flags().BoolVar(&push, "push", false, "Push the fix branch after committing")
	_ = fixCmd.MarkFlagRequired("repository-id")
	_ = fixCmd.MarkFlagRequired("issues")

	rootCmd.AddCommand(reviewCmd, fixCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: %s: %s", resp.Status, respBody)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		fmt.Println(string(respBody))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

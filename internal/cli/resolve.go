package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/spf13/cobra"
)

// actingUser returns the --user value, which falls back to the configured
// default user.
func actingUser(cmd *cobra.Command) (string, error) {
	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return "", err
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return "", fmt.Errorf("no acting user: pass --user or set STAGEFLOW_USER: %w", domain.ErrValidation)
	}
	return user, nil
}

// resolveProjectID accepts a full project ID, a unique ID prefix, or an
// exact (case-insensitive) project name.
func resolveProjectID(ctx context.Context, app *App, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("project ID is required: %w", domain.ErrValidation)
	}

	projects, err := app.Projects.List(ctx)
	if err != nil {
		return "", err
	}

	for _, p := range projects {
		if p.ID == input {
			return p.ID, nil
		}
	}

	var matches []string
	for _, p := range projects {
		if strings.HasPrefix(p.ID, input) || strings.EqualFold(p.Name, input) {
			matches = append(matches, p.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", domain.NotFoundf("project %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("project %q is ambiguous (%d matches): %w", input, len(matches), domain.ErrValidation)
	}
}

// projectGraph loads a project and the workflow graph it follows.
func projectGraph(ctx context.Context, app *App, projectID string) (*domain.Project, *workflow.Graph, error) {
	p, err := app.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	g, err := app.Workflows.Graph(p.WorkflowVersion)
	if err != nil {
		return nil, nil, err
	}
	return p, g, nil
}

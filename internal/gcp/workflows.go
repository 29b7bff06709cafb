package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// WorkflowNotifier starts a workflow execution with the summary of a finished run.
type WorkflowNotifier struct {
	client *executions.Client
	parent string
}

func NewWorkflowNotifier(ctx context.Context, projectID, location, workflowID string) (*WorkflowNotifier, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowNotifier: projectID, location and workflowID must be set")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowNotifier{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// RunCompleted hands the run summary to the workflow and returns the execution name.
func (n *WorkflowNotifier) RunCompleted(ctx context.Context, payload models.RunCompletedPayload) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := n.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: n.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}

func (n *WorkflowNotifier) Close() error {
	return n.client.Close()
}

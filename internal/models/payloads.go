package models

// These structs define the JSON payloads exchanged with the Cloud Functions
// and the downstream workflow.

// GCSEvent is the data of a storage "object finalized" CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// BatchRequest is the input for the batch-generator function. Either
// InputURIs or InputPrefix must be set.
type BatchRequest struct {
	InputURIs   []string `json:"inputUris,omitempty"`
	InputPrefix string   `json:"inputPrefix,omitempty"`
	Mode        Mode     `json:"mode,omitempty"`
	NumQA       int      `json:"numQa,omitempty"`
	ExecutionID string   `json:"executionId,omitempty"`
}

// BatchResponse is the output of the batch-generator function.
type BatchResponse struct {
	Status      string   `json:"status"`
	RunID       string   `json:"runId"`
	Submitted   int      `json:"submitted"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	Artifacts   []string `json:"artifacts"`
	FailedFiles []string `json:"failedFiles"`
	ReportURI   string   `json:"reportUri,omitempty"`
}

// RunCompletedPayload is the argument handed to the downstream workflow.
type RunCompletedPayload struct {
	RunID       string   `json:"runId"`
	Mode        Mode     `json:"mode"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	Artifacts   []string `json:"artifacts"`
	FailedFiles []string `json:"failedFiles"`
}

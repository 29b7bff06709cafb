package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreLedger records one document per source file and run, so that
// progress can be followed and already processed files can be skipped.
type FirestoreLedger struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreLedger(client *firestore.Client, collection string) *FirestoreLedger {
	if collection == "" {
		collection = "qa_documents"
	}
	return &FirestoreLedger{client: client, collection: collection}
}

func (l *FirestoreLedger) docRef(runID, source string) *firestore.DocumentRef {
	return l.client.Collection(l.collection).Doc(ledgerDocID(runID, source))
}

// ledgerDocID builds a document ID that is stable for a run and source and
// contains no path separators.
func ledgerDocID(runID, source string) string {
	id := runID + "_" + source
	out := make([]rune, 0, len(id))
	for _, r := range id {
		if r == '/' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

// Start creates the PENDING record for a source.
func (l *FirestoreLedger) Start(ctx context.Context, runID, source string) error {
	doc := models.Document{
		RunID:      runID,
		SourceName: source,
		Status:     models.StatusPending,
		UpdatedAt:  time.Now(),
	}
	if _, err := l.docRef(runID, source).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to create ledger document: %w", err)
	}
	return nil
}

// SetStatus moves a source to a new status. errDetails is stored when non-empty.
func (l *FirestoreLedger) SetStatus(ctx context.Context, runID, source, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now()},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	if _, err := l.docRef(runID, source).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update ledger status to %s: %w", status, err)
	}
	return nil
}

// Complete marks a source DONE and records where its artifact went.
func (l *FirestoreLedger) Complete(ctx context.Context, runID, source, artifact string, meta models.ExtractionMetadata) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusDone},
		{Path: "artifactPath", Value: artifact},
		{Path: "fileHash", Value: meta.FileHash},
		{Path: "metadata", Value: meta},
		{Path: "updatedAt", Value: time.Now()},
	}
	if _, err := l.docRef(runID, source).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to complete ledger document: %w", err)
	}
	return nil
}

// FindDone returns the ID of a DONE document with the given file hash, if any.
func (l *FirestoreLedger) FindDone(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := l.client.Collection(l.collection).
		Where("fileHash", "==", fileHash).
		Where("status", "==", models.StatusDone).
		Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

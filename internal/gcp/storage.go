package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// ErrObjectExists is returned by SaveToGCSAtomically when the destination
// object is already present.
var ErrObjectExists = errors.New("object already exists")

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already
// exist. The object becomes visible only once the upload is finalized.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			return fmt.Errorf("%s: %w", objectName, ErrObjectExists)
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%s: %w", objectName, ErrObjectExists)
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs:// uri needs a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}

// ListPDFObjects returns the names of all .pdf objects under prefix, sorted.
func ListPDFObjects(ctx context.Context, client *storage.Client, bucket, prefix string) ([]string, error) {
	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in gs://%s/%s: %w", bucket, prefix, err)
		}
		if strings.EqualFold(path.Ext(attrs.Name), ".pdf") {
			names = append(names, attrs.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// DownloadObject streams gs://bucket/object into destPath.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

// GCSSink stores artifacts in a bucket under an optional prefix.
type GCSSink struct {
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
}

func NewGCSSink(client *storage.Client, bucketName, prefix string) *GCSSink {
	return &GCSSink{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

func (s *GCSSink) objectName(relPath string) string {
	if s.prefix == "" {
		return relPath
	}
	return s.prefix + "/" + relPath
}

// Put creates the object exactly once; an existing object is an error.
func (s *GCSSink) Put(ctx context.Context, relPath string, data []byte) error {
	name := s.objectName(relPath)
	if err := SaveToGCSAtomically(ctx, s.bucket, name, data, contentTypeFor(relPath)); err != nil {
		slog.Error("Failed to save artifact to GCS.", "gcsBucket", s.bucketName, "gcsObject", name, "error", err)
		return err
	}
	return nil
}

// Replace uploads relPath unconditionally; GCS makes the new generation
// visible only once the upload is finalized.
func (s *GCSSink) Replace(ctx context.Context, relPath string, data []byte) error {
	name := s.objectName(relPath)
	writer := s.bucket.Object(name).NewWriter(ctx)
	writer.ContentType = contentTypeFor(relPath)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Location returns the gs:// uri for relPath.
func (s *GCSSink) Location(relPath string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucketName, s.objectName(relPath))
}

func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return ""
	}
}

package gcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrBlocked is returned when a model stops generating for safety reasons.
var ErrBlocked = errors.New("response blocked by safety filters")

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("model returned no text")

// RecoverableStatus reports whether an HTTP status is worth retrying.
func RecoverableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code/100 == 5
}

// ClassifyError maps a transport error from any backend onto the retry
// taxonomy. Errors that are already classified are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var ce *retry.Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return retry.Recoverable(err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if RecoverableStatus(gerr.Code) {
			return retry.Recoverable(err)
		}
		return retry.Fatal(err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if RecoverableStatus(apiErr.Code) {
			return retry.Recoverable(err)
		}
		return retry.Fatal(err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		if RecoverableStatus(apiErrPtr.Code) {
			return retry.Recoverable(err)
		}
		return retry.Fatal(err)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
			return retry.Recoverable(err)
		default:
			return retry.Fatal(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.Recoverable(err)
	}
	return retry.Fatal(fmt.Errorf("unclassified model error: %w", err))
}

package gcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want retry.Kind
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "backend down"), retry.KindRecoverable},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), retry.KindRecoverable},
		{"grpc wrapped deadline", fmt.Errorf("vertex: %w", status.Error(codes.DeadlineExceeded, "slow")), retry.KindRecoverable},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "no"), retry.KindFatal},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad"), retry.KindFatal},
		{"googleapi 429", &googleapi.Error{Code: 429}, retry.KindRecoverable},
		{"googleapi 503", &googleapi.Error{Code: 503}, retry.KindRecoverable},
		{"googleapi 403", &googleapi.Error{Code: 403}, retry.KindFatal},
		{"genai 500", genai.APIError{Code: 500, Message: "internal"}, retry.KindRecoverable},
		{"genai 400", genai.APIError{Code: 400, Message: "bad request"}, retry.KindFatal},
		{"deadline", context.DeadlineExceeded, retry.KindRecoverable},
		{"already classified", retry.Parse(errors.New("x")), retry.KindParse},
		{"unknown", errors.New("weird"), retry.KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.want, retry.KindOf(got))
			assert.Contains(t, got.Error(), tt.err.Error())
		})
	}
}

func TestClassifyError_Cancelled(t *testing.T) {
	t.Parallel()

	err := ClassifyError(context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, retry.IsRetryable(err))
	assert.Nil(t, ClassifyError(nil))
}

func TestRecoverableStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RecoverableStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, RecoverableStatus(code), code)
	}
}

package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return envelope
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: %s", ct)
	}
	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding success envelope: %v", err)
	}
	if envelope.Data == nil {
		t.Fatal("expected data in envelope")
	}
}

func TestWriteErrorMapsCodeToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{pkgerrors.New(pkgerrors.CodeNotFound, "payment not found"), http.StatusNotFound, "NOT_FOUND"},
		{pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"), http.StatusForbidden, "FORBIDDEN"},
		{pkgerrors.New(pkgerrors.CodeDependency, "sheet read failed"), http.StatusServiceUnavailable, "DEPENDENCY_ERROR"},
		{errors.New("plain failure"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), testLogger(), rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}
		envelope := decodeError(t, rec)
		if envelope.Error.Code != tc.code {
			t.Fatalf("%v: expected code %s, got %s", tc.err, tc.code, envelope.Error.Code)
		}
	}
}

func TestWriteErrorPassesClientMessagesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), rec, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found"))

	envelope := decodeError(t, rec)
	if envelope.Error.Message != "payment not found" {
		t.Fatalf("expected caller message, got %q", envelope.Error.Message)
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), rec, pkgerrors.New(pkgerrors.CodeInternal, "postgres exploded at 10.0.0.4"))

	envelope := decodeError(t, rec)
	if envelope.Error.Message != "internal server error" {
		t.Fatalf("internal detail leaked: %q", envelope.Error.Message)
	}
}

func TestWriteErrorRemapsWebhookFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), rec, pkgerrors.New(pkgerrors.CodeWebhook, "discord 429"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	envelope := decodeError(t, rec)
	if envelope.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("webhook code surfaced as %s", envelope.Error.Code)
	}
}

func TestWriteErrorIncludesDetailsWhenAllowed(t *testing.T) {
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"amount": "must be numeric"})

	rec := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), rec, err)

	envelope := decodeError(t, rec)
	if envelope.Error.Details == nil {
		t.Fatal("expected validation details")
	}

	// Codes without DetailsAllowed drop details even when set.
	rec = httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), rec, pkgerrors.New(pkgerrors.CodeForbidden, "no").WithDetails("secret"))
	envelope = decodeError(t, rec)
	if envelope.Error.Details != nil {
		t.Fatalf("details leaked on forbidden: %v", envelope.Error.Details)
	}
}

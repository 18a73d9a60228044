package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

// DecodeJSONResponse unmarshals a recorded JSON response body.
func DecodeJSONResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
}

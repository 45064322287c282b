package revision

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestHandlerListsSubjectHistory(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Append(context.Background(), Revision{
		SubjectType:       SubjectBilling,
		SubjectID:         "billing-1",
		CaregivingRoundID: "round-1",
		ProgressingStatus: "WAITING_DEPOSIT",
		TotalAmount:       300000,
	}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	handler := NewHandler(store)
	req := httptest.NewRequest("GET", "/api/v1/revisions?subjectType=billing&subjectId=billing-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status mismatch: got=%d want=200", rec.Code)
	}
	var revisions []Revision
	if err := json.Unmarshal(rec.Body.Bytes(), &revisions); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(revisions) != 1 {
		t.Fatalf("revision count mismatch: got=%d want=1", len(revisions))
	}
	if revisions[0].TotalAmount != 300000 {
		t.Fatalf("total mismatch: got=%d want=300000", revisions[0].TotalAmount)
	}
}

func TestHandlerValidatesQuery(t *testing.T) {
	handler := NewHandler(NewMemoryStore())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/revisions?subjectType=coverage&subjectId=x", nil))
	if rec.Code != 400 {
		t.Fatalf("bad subject type status mismatch: got=%d want=400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/revisions?subjectType=billing", nil))
	if rec.Code != 400 {
		t.Fatalf("missing subject id status mismatch: got=%d want=400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/revisions?subjectType=billing&subjectId=x", nil))
	if rec.Code != 404 {
		t.Fatalf("method status mismatch: got=%d want=404", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/revisions?subjectType=settlement&subjectId=missing", nil))
	if rec.Code != 200 {
		t.Fatalf("empty history status mismatch: got=%d want=200", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("empty history body mismatch: got=%q want=[]", body)
	}
}

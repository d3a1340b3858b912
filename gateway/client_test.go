package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

type recordedRequest struct {
	Method    string
	Path      string
	Query     string
	Auth      string
	RequestID string
	Body      map[string]interface{}
}

type crmStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (s *crmStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Auth:      r.Header.Get("Authorization"),
		RequestID: r.Header.Get("X-Request-ID"),
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	if s.handler != nil {
		s.handler(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *crmStub) last() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newStubClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *crmStub) {
	t.Helper()
	stub := &crmStub{handler: handler}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{BaseURL: srv.URL + "/", Timeout: time.Second}, StaticToken("svc-token"))
	require.NoError(t, err)
	return client, stub
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sampleRecord(id string) models.FollowUpRecord {
	return models.FollowUpRecord{
		ID:         id,
		CaseStatus: models.CaseStatusOpen,
		Priority:   models.PriorityHigh,
		Comments:   models.CommentLog{{Text: "first call", ActionTaken: models.ActionCall}},
	}
}

func TestNewClientRequiresBaseURLAndCredentials(t *testing.T) {
	_, err := NewClient(Options{}, StaticToken("x"))
	assert.Error(t, err)
	_, err = NewClient(Options{BaseURL: "http://crm.local"}, nil)
	assert.Error(t, err)
}

func TestListFollowUps(t *testing.T) {
	client, stub := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.FollowUpPage{
			FollowUps: []models.FollowUpRecord{sampleRecord("f1")},
			Counts:    models.FollowUpCounts{Open: 1, Closed: 4},
		})
	})

	page, err := client.ListFollowUps(context.Background(), models.CaseStatusOpen)
	require.NoError(t, err)
	require.Len(t, page.FollowUps, 1)
	assert.Equal(t, 4, page.Counts.Closed)

	req := stub.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/follow-ups", req.Path)
	assert.Equal(t, "caseStatus=open", req.Query)
	assert.Equal(t, "Bearer svc-token", req.Auth)
	assert.NotEmpty(t, req.RequestID)
}

func TestListFollowUpsRejectsMalformedRecords(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		bad := sampleRecord("f1")
		bad.CaseStatus = "archived"
		writeJSON(w, http.StatusOK, models.FollowUpPage{FollowUps: []models.FollowUpRecord{bad}})
	})

	_, err := client.ListFollowUps(context.Background(), "")
	require.Error(t, err)
	assert.False(t, IsUncertain(err))
}

func TestUpdateStatusSendsPayload(t *testing.T) {
	client, stub := newStubClient(t, nil)

	err := client.UpdateStatus(context.Background(), "f1", models.StatusUpdate{CaseStatus: models.CaseStatusClose, Result: "deal signed", WordCount: 2})
	require.NoError(t, err)

	req := stub.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/follow-ups/f1/status", req.Path)
	assert.Equal(t, "close", req.Body["caseStatus"])
	assert.Equal(t, "deal signed", req.Body["result"])
	assert.EqualValues(t, 2, req.Body["wordCount"])
}

func TestUpdateStatusConflictMatchesLocalCheck(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already closed"})
	})

	err := client.UpdateStatus(context.Background(), "f1", models.StatusUpdate{CaseStatus: models.CaseStatusClose, Result: "late"})
	require.Error(t, err)
	assert.False(t, IsUncertain(err))
	assert.Same(t, utils.ErrInvalidTransition, utils.ToApiError(err))
}

func TestAppendCommentReturnsServerRecord(t *testing.T) {
	client, stub := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec := sampleRecord("f1")
		rec.Comments.Append(models.CommentEntry{Text: "sent brochure", ActionTaken: models.ActionEmail, CommentByName: "Asha"})
		writeJSON(w, http.StatusCreated, map[string]interface{}{"followUp": rec})
	})

	rec, err := client.AppendComment(context.Background(), "f1", models.CommentEntry{Text: "sent brochure"})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Comments.Len())

	req := stub.last()
	assert.Equal(t, "/api/follow-ups/f1/comments", req.Path)
	assert.Equal(t, "other", req.Body["actionTaken"])
}

func TestAppendCommentMissingRecordIsUncertain(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	})

	_, err := client.AppendComment(context.Background(), "f1", models.CommentEntry{Text: "x"})
	require.Error(t, err)
	assert.True(t, IsUncertain(err))
	assert.Equal(t, "UNCERTAIN_OPERATION", utils.ToApiError(err).ErrorCode)
}

func TestSubmitAssignmentSingleAndBulk(t *testing.T) {
	client, stub := newStubClient(t, nil)
	ctx := utils.WithRequestID(context.Background(), "req-123")

	id, err := client.SubmitAssignment(ctx, models.AssignmentRequest{
		TargetIDs:  []string{"l1"},
		EntityType: models.EntityLead,
		EmployeeID: "emp-1",
		Priority:   models.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, "req-123", id)
	single := stub.last()
	assert.Equal(t, "/api/leads/l1/assign", single.Path)
	assert.Equal(t, "emp-1", single.Body["employeeId"])
	assert.Equal(t, "high", single.Body["priority"])
	assert.Equal(t, "req-123", single.RequestID)

	_, err = client.SubmitAssignment(context.Background(), models.AssignmentRequest{
		TargetIDs:  []string{"u1", "u2"},
		EntityType: models.EntityUser,
		EmployeeID: "emp-1",
		Notes:      "weekend batch",
	})
	require.NoError(t, err)
	bulk := stub.last()
	assert.Equal(t, "/api/users/bulk-assign", bulk.Path)
	assert.Equal(t, []interface{}{"u1", "u2"}, bulk.Body["userIds"])
	assert.Equal(t, "weekend batch", bulk.Body["notes"])
	_, hasPriority := bulk.Body["priority"]
	assert.False(t, hasPriority)
}

func TestListEmployeeCapacity(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"employees": []models.EmployeeCapacity{{EmployeeID: "emp-1", AssignedCount: 3, MaxCapacity: 10}},
		})
	})

	list, err := client.ListEmployeeCapacity(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 10, list[0].MaxCapacity)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		uncertain bool
		code      string
	}{
		{name: "not found", status: http.StatusNotFound, code: "RESOURCE_NOT_FOUND"},
		{name: "unauthorized", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "rejected", status: http.StatusUnprocessableEntity, code: "UPSTREAM_FAILED"},
		{name: "already terminal", status: http.StatusConflict, code: "INVALID_TRANSITION"},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, uncertain: true, code: "UNCERTAIN_OPERATION"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, c.status, map[string]string{"error": "nope"})
			})

			err := client.DeleteFollowUp(context.Background(), "f1")
			require.Error(t, err)
			assert.Equal(t, c.uncertain, IsUncertain(err))
			assert.Equal(t, c.code, utils.ToApiError(err).ErrorCode)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestReadFailureIsNeverUncertain(t *testing.T) {
	client, _ := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetFollowUp(context.Background(), "f1")
	require.Error(t, err)
	assert.False(t, IsUncertain(err))
}

func TestTimeoutOnWriteIsUncertain(t *testing.T) {
	stub := &crmStub{handler: func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, StaticToken("t"))
	require.NoError(t, err)

	err = client.UpdateStatus(context.Background(), "f1", models.StatusUpdate{CaseStatus: models.CaseStatusClose, Result: "x", WordCount: 1})
	require.Error(t, err)
	assert.True(t, IsUncertain(err))
}

func TestDialFailureIsNotUncertain(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client, err := NewClient(Options{BaseURL: addr, Timeout: time.Second}, StaticToken("t"))
	require.NoError(t, err)

	err = client.DeleteFollowUp(context.Background(), "f1")
	require.Error(t, err)
	assert.False(t, IsUncertain(err))
	assert.Equal(t, "UPSTREAM_FAILED", utils.ToApiError(err).ErrorCode)
}

func TestCallerTokenIsForwarded(t *testing.T) {
	stub := &crmStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL}, RequestToken(nil))
	require.NoError(t, err)

	err = client.DeleteFollowUp(context.Background(), "f1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCredential))
	assert.Equal(t, "UNAUTHORIZED", utils.ToApiError(err).ErrorCode)
	assert.Empty(t, stub.requests, "no request without a credential")

	ctx := WithBearerToken(context.Background(), "user-token")
	require.NoError(t, client.DeleteFollowUp(ctx, "f1"))
	assert.Equal(t, "Bearer user-token", stub.last().Auth)
}

package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/subsentry/subsentry-api/internal/data"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
	"github.com/subsentry/subsentry-api/internal/mocks"
	"github.com/subsentry/subsentry-api/internal/service"
)

const testJobID = "6fa2e1da-37a1-4a33-a9a1-5c4d1f1df355"

func newJobHandlers(t *testing.T) (*JobHandlers, *mocks.MockJobRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc := service.NewTransitionService(service.TransitionServiceOptions{Jobs: repo})
	return &JobHandlers{Svc: svc}, repo
}

func activeJob() *model.Job {
	return &model.Job{
		ID:        testJobID,
		UserID:    "6be3ce6c-2a16-4b1a-9cb9-1a1b2fd28f3e",
		ServiceID: "2a9dd21c-78a1-4efc-a0f2-1d7b9ab16c3f",
		Action:    model.JobActionCancel,
		Trigger:   model.JobTriggerScheduled,
		Status:    model.JobStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func doRequest(h http.HandlerFunc, r *http.Request) *http.Response {
	w := httptest.NewRecorder()
	h(w, r)
	return w.Result()
}

func TestChangeStatus_Success(t *testing.T) {
	h, repo := newJobHandlers(t)

	current := activeJob()
	updated := activeJob()
	updated.Status = model.JobStatusCompletedPaid

	repo.EXPECT().GetByID(gomock.Any(), testJobID).Return(current, nil)
	repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).
		Return(&data.CASResult{Outcome: data.CASApplied, Job: updated}, nil)

	body, _ := json.Marshal(model.ChangeStatusRequest{Status: model.JobStatusCompletedPaid})
	r := httptest.NewRequest(http.MethodPut, "/api/jobs/"+testJobID+"/status", bytes.NewReader(body))
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.ChangeStatus, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, model.JobStatusCompletedPaid, got.Status)
}

func TestChangeStatus_InvalidJSON(t *testing.T) {
	h, _ := newJobHandlers(t)

	r := httptest.NewRequest(http.MethodPut, "/api/jobs/"+testJobID+"/status", bytes.NewBufferString("{bad"))
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.ChangeStatus, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeStatus_MalformedID(t *testing.T) {
	h, _ := newJobHandlers(t)

	body, _ := json.Marshal(model.ChangeStatusRequest{Status: model.JobStatusActive})
	r := httptest.NewRequest(http.MethodPut, "/api/jobs/not-a-uuid/status", bytes.NewReader(body))
	r.SetPathValue("id", "not-a-uuid")

	resp := doRequest(h.ChangeStatus, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestChangeStatus_IllegalTransition(t *testing.T) {
	h, repo := newJobHandlers(t)

	pending := activeJob()
	pending.Status = model.JobStatusPending
	repo.EXPECT().GetByID(gomock.Any(), testJobID).Return(pending, nil)

	body, _ := json.Marshal(model.ChangeStatusRequest{Status: model.JobStatusCompletedPaid})
	r := httptest.NewRequest(http.MethodPut, "/api/jobs/"+testJobID+"/status", bytes.NewReader(body))
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.ChangeStatus, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "invalid_transition", payload["error"])
}

func TestChangeStatus_Conflict(t *testing.T) {
	h, repo := newJobHandlers(t)

	repo.EXPECT().GetByID(gomock.Any(), testJobID).Return(activeJob(), nil)
	raced := activeJob()
	raced.Status = model.JobStatusFailed
	repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).
		Return(&data.CASResult{Outcome: data.CASConflict, Job: raced}, nil)

	body, _ := json.Marshal(model.ChangeStatusRequest{Status: model.JobStatusCompletedPaid})
	r := httptest.NewRequest(http.MethodPut, "/api/jobs/"+testJobID+"/status", bytes.NewReader(body))
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.ChangeStatus, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetJob_NotFound(t *testing.T) {
	h, repo := newJobHandlers(t)
	repo.EXPECT().GetByID(gomock.Any(), testJobID).
		Return(nil, apperrors.NotFoundf("job %s not found", testJobID))

	r := httptest.NewRequest(http.MethodGet, "/api/jobs/"+testJobID, nil)
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.GetJob, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetJob_Success(t *testing.T) {
	h, repo := newJobHandlers(t)
	repo.EXPECT().GetByID(gomock.Any(), testJobID).Return(activeJob(), nil)

	r := httptest.NewRequest(http.MethodGet, "/api/jobs/"+testJobID, nil)
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.GetJob, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, testJobID, got.ID)
}

func TestHistory_Success(t *testing.T) {
	h, repo := newJobHandlers(t)
	from := model.JobStatusPending
	repo.EXPECT().GetByID(gomock.Any(), testJobID).Return(activeJob(), nil)
	repo.EXPECT().History(gomock.Any(), testJobID).Return([]*model.StatusHistoryEntry{
		{JobID: testJobID, FromStatus: &from, ToStatus: model.JobStatusDispatched, ChangedBy: model.ActorAgent},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/jobs/"+testJobID+"/history", nil)
	r.SetPathValue("id", testJobID)

	resp := doRequest(h.History, r)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStats_Success(t *testing.T) {
	h, repo := newJobHandlers(t)
	repo.EXPECT().Stats(gomock.Any()).Return(&model.JobStats{Pending: 3, Completed: 7}, nil)

	resp := doRequest(h.Stats, httptest.NewRequest(http.MethodGet, "/api/jobs/stats", nil))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.JobStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 3, got.Pending)
	assert.Equal(t, 7, got.Completed)
}

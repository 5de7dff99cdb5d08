package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuongbtq/mailsweep/internal/domain"
	"github.com/cuongbtq/mailsweep/internal/mailstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	nextID  int64
	created []domain.Job
	jobs    map[int64]*domain.Job
	failAll bool
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[int64]*domain.Job)}
}

func (f *fakeJobStore) Create(_ context.Context, jobType, parameters string) (int64, error) {
	if f.failAll {
		return 0, assert.AnError
	}
	f.nextID++
	job := domain.Job{
		ID:         f.nextID,
		JobType:    jobType,
		Parameters: parameters,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	f.created = append(f.created, job)
	f.jobs[job.ID] = &job
	return job.ID, nil
}

func (f *fakeJobStore) Get(_ context.Context, jobID int64) (*domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobStore) List(_ context.Context, limit int) ([]domain.Job, error) {
	out := make([]domain.Job, 0, limit)
	for i := f.nextID; i > 0 && len(out) < limit; i-- {
		if job, ok := f.jobs[i]; ok {
			out = append(out, *job)
		}
	}
	return out, nil
}

type fakeMailStats struct {
	stats *mailstore.Stats
	err   error
}

func (f *fakeMailStats) GetStats(_ context.Context) (*mailstore.Stats, error) {
	return f.stats, f.err
}

func newTestRouter(jobs *fakeJobStore, mail *fakeMailStats) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewJobHandler(&Dependencies{
		Logger: slog.Default(),
		Jobs:   jobs,
		Mail:   mail,
	})

	r := gin.New()
	r.POST("/api/v1/jobs/fetch", h.CreateFetchJob)
	r.POST("/api/v1/jobs/delete", h.CreateDeleteJob)
	r.GET("/api/v1/jobs", h.ListJobs)
	r.GET("/api/v1/jobs/:job_id", h.GetJob)
	r.GET("/api/v1/stats", h.GetStats)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateFetchJob(t *testing.T) {
	t.Run("with raw query", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/fetch", gin.H{
			"query": "from:newsletter@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, jobs.created, 1)
		assert.Equal(t, domain.JobTypeFetch, jobs.created[0].JobType)

		params, err := domain.ParseFetchParameters(jobs.created[0].Parameters)
		require.NoError(t, err)
		assert.Equal(t, "from:newsletter@example.com", params.Query)
	})

	t.Run("with older_than_days", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/fetch", gin.H{
			"older_than_days": 60,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, jobs.created, 1)

		params, err := domain.ParseFetchParameters(jobs.created[0].Parameters)
		require.NoError(t, err)
		assert.Contains(t, params.Query, "before:")
	})

	t.Run("query wins over older_than_days", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/fetch", gin.H{
			"query":           "is:unread",
			"older_than_days": 60,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, jobs.created, 1)

		params, err := domain.ParseFetchParameters(jobs.created[0].Parameters)
		require.NoError(t, err)
		assert.Equal(t, "is:unread", params.Query)
	})

	t.Run("missing query and window", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/fetch", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, jobs.created)
	})

	t.Run("store failure", func(t *testing.T) {
		jobs := newFakeJobStore()
		jobs.failAll = true
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/fetch", gin.H{
			"query": "is:unread",
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCreateDeleteJob(t *testing.T) {
	t.Run("valid categories", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/delete", gin.H{
			"categories": []string{"Spam", "Promotional"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, jobs.created, 1)
		assert.Equal(t, domain.JobTypeDelete, jobs.created[0].JobType)

		params, err := domain.ParseDeleteParameters(jobs.created[0].Parameters)
		require.NoError(t, err)
		assert.Equal(t, []string{"Spam", "Promotional"}, params.Categories)
	})

	t.Run("categories are case-insensitive", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/delete", gin.H{
			"categories": []string{"spam", "NEWSLETTER"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("empty categories", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/delete", gin.H{
			"categories": []string{},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, jobs.created)
	})

	t.Run("unknown category", func(t *testing.T) {
		jobs := newFakeJobStore()
		r := newTestRouter(jobs, &fakeMailStats{})

		w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/delete", gin.H{
			"categories": []string{"Spam", "Garbage"},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Garbage")
		assert.Empty(t, jobs.created)
	})
}

func TestGetJob(t *testing.T) {
	jobs := newFakeJobStore()
	r := newTestRouter(jobs, &fakeMailStats{})

	jobID, err := jobs.Create(context.Background(), domain.JobTypeFetch, `{"query":"is:unread"}`)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/1", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, float64(jobID), got["id"])
		assert.Equal(t, domain.JobTypeFetch, got["job_type"])
		assert.Equal(t, domain.JobStatusPending, got["status"])
	})

	t.Run("not found", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListJobs(t *testing.T) {
	jobs := newFakeJobStore()
	r := newTestRouter(jobs, &fakeMailStats{})

	for i := 0; i < 15; i++ {
		_, err := jobs.Create(context.Background(), domain.JobTypeFetch, `{"query":"is:unread"}`)
		require.NoError(t, err)
	}

	t.Run("default limit", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/jobs", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var got struct {
			Jobs []json.RawMessage `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got.Jobs, 10)
	})

	t.Run("explicit limit", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/jobs?limit=3", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var got struct {
			Jobs []json.RawMessage `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got.Jobs, 3)
	})

	t.Run("invalid limit", func(t *testing.T) {
		w := doRequest(t, r, http.MethodGet, "/api/v1/jobs?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStats(t *testing.T) {
	t.Run("with stored emails", func(t *testing.T) {
		oldest := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		mail := &fakeMailStats{stats: &mailstore.Stats{
			StoredCount:  42,
			StorageSaved: 12_500_000,
			OldestStored: &oldest,
		}}
		r := newTestRouter(newFakeJobStore(), mail)

		w := doRequest(t, r, http.MethodGet, "/api/v1/stats", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, float64(42), got["stored_count"])
		assert.Equal(t, float64(12_500_000), got["storage_saved_bytes"])
		assert.InDelta(t, 12.5, got["storage_saved_mb"], 0.001)
		assert.Equal(t, "2025-03-01T12:00:00Z", got["oldest_stored"])
	})

	t.Run("empty store", func(t *testing.T) {
		mail := &fakeMailStats{stats: &mailstore.Stats{}}
		r := newTestRouter(newFakeJobStore(), mail)

		w := doRequest(t, r, http.MethodGet, "/api/v1/stats", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "oldest_stored")
	})

	t.Run("store failure", func(t *testing.T) {
		mail := &fakeMailStats{err: assert.AnError}
		r := newTestRouter(newFakeJobStore(), mail)

		w := doRequest(t, r, http.MethodGet, "/api/v1/stats", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

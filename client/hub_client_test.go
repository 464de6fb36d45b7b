package client

import (
	"agent-datahub/service/models"
	"agent-datahub/service/sync_engine"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, handler http.HandlerFunc) *HubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHubClient(&HubConfig{BaseURL: srv.URL + "/", Token: "hub-token"})
}

func TestHubClient_FetchStatus(t *testing.T) {
	c := newTestHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, sync_engine.HubStatusPath, r.URL.Path)
		assert.Equal(t, "Bearer hub-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"endpoints":[{"endpoint":"bet_order","agent_id":1,"last_sync_count":20,"sync_params":{"last_data_date":"2025-03-01"}},{"endpoint":"members","sync_params":null}]}`))
	})

	list, err := c.FetchStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-03-01", list[0].SyncParams.LastDataDate)
	assert.Equal(t, int64(20), list[0].LastSyncCount)
	assert.Empty(t, list[1].SyncParams.LastDataDate)
}

func TestHubClient_Upload(t *testing.T) {
	c := newTestHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sync_engine.HubBetOrdersPath, r.URL.Path)
		var req models.UploadRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(3), req.AgentID)
		assert.Len(t, req.Data, 2)
		_, _ = w.Write([]byte(`{"processed":2,"endpoint":"bet_order"}`))
	})

	resp, err := c.Upload(context.Background(), sync_engine.HubBetOrdersPath, &models.UploadRequest{
		Data:    []models.Row{{"id": 1}, {"id": 2}},
		AgentID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Processed)
}

func TestHubClient_VerifyAndErrors(t *testing.T) {
	c := newTestHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == sync_engine.HubVerifyPathPrefix+"members" {
			var req models.VerifyRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Len(t, req.IDs, 2)
			_, _ = w.Write([]byte(`{"records":[{"id":1}],"count":1,"requested":2}`))
			return
		}
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})

	resp, err := c.Verify(context.Background(), "members", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 1)

	_, err = c.UploadConfig(context.Background(), map[string]interface{}{"agent_id": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.RequestCount)
	assert.Equal(t, int64(1), stats.ErrorCount)
}

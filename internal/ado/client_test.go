package ado

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		OrganizationURL: server.URL,
		Project:         "Proj",
		PAT:             "secret-pat",
		Timeout:         5 * time.Second,
		RetryDelay:      time.Millisecond,
		MaxRetries:      3,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestConfigValidate(t *testing.T) {
	valid := Config{OrganizationURL: "https://dev.azure.com/contoso", Project: "Proj", PAT: "pat"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{name: "missing url", mutate: func(c *Config) { c.OrganizationURL = "" }},
		{name: "relative url", mutate: func(c *Config) { c.OrganizationURL = "contoso" }},
		{name: "missing project", mutate: func(c *Config) { c.Project = " " }},
		{name: "missing pat", mutate: func(c *Config) { c.PAT = "" }},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestClient_QueryByFilter(t *testing.T) {
	var gotQuery wiqlRequest
	var gotBatch workItemsBatchRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Empty(t, user)
		assert.Equal(t, "secret-pat", pass)
		assert.Equal(t, apiVersion, r.URL.Query().Get("api-version"))

		switch r.URL.Path {
		case "/Proj/_apis/wit/wiql":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "25", r.URL.Query().Get("$top"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"workItems": []map[string]any{{"id": 3}, {"id": 1}, {"id": 2}},
			})
		case "/Proj/_apis/wit/workitemsbatch":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBatch))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"value": []map[string]any{
					{"id": 1, "fields": map[string]any{"System.Title": "First", "System.AreaPath": `Proj\PL-UK`}},
					{"id": 2, "fields": map[string]any{"System.State": "New"}},
					{"id": 3, "fields": map[string]any{
						"System.Title":       "Third",
						"System.CreatedDate": "2024-03-01T10:00:00Z",
						"System.AssignedTo":  map[string]any{"displayName": "Ana Ruiz"},
					}},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	items, err := client.QueryByFilter(context.Background(), service.QueryFilter{
		AreaPath:      `Proj\PL-UK`,
		TitleKeywords: []string{"carousel"},
		ExcludeIDs:    []int{100},
		Limit:         25,
	})
	require.NoError(t, err)

	// Item 2 has no title and is skipped; order follows the WIQL result.
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].ID)
	assert.Equal(t, "Ana Ruiz", items[0].AssignedTo)
	assert.Equal(t, 2024, items[0].CreatedDate.Year())
	assert.Equal(t, 1, items[1].ID)

	assert.Contains(t, gotQuery.Query, "CONTAINS 'carousel'")
	assert.Contains(t, gotQuery.Query, "[System.Id] <> 100")
	assert.Equal(t, []int{3, 1, 2}, gotBatch.IDs)
	assert.Contains(t, gotBatch.Fields, "System.Title")
}

func TestClient_QueryByFilter_NoMatches(t *testing.T) {
	var batchCalls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Proj/_apis/wit/workitemsbatch" {
			batchCalls.Add(1)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"workItems": []any{}})
	})

	items, err := client.QueryByFilter(context.Background(), service.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, batchCalls.Load())
}

func TestClient_QueryByFilter_Batches(t *testing.T) {
	var batchSizes []int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Proj/_apis/wit/wiql":
			refs := make([]map[string]any, 0, 450)
			for id := 1; id <= 450; id++ {
				refs = append(refs, map[string]any{"id": id})
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"workItems": refs})
		case "/Proj/_apis/wit/workitemsbatch":
			var req workItemsBatchRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			batchSizes = append(batchSizes, len(req.IDs))
			value := make([]map[string]any, 0, len(req.IDs))
			for _, id := range req.IDs {
				value = append(value, map[string]any{"id": id, "fields": map[string]any{"System.Title": "Item"}})
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"value": value})
		}
	})

	items, err := client.QueryByFilter(context.Background(), service.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 450)
	assert.Equal(t, []int{200, 200, 50}, batchSizes)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		wantErr error
		body    any
		name    string
		status  int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: map[string]any{"message": "TF400813"}, wantErr: common.ErrSourceUnavailable},
		{name: "forbidden", status: http.StatusForbidden, body: map[string]any{"message": "denied"}, wantErr: common.ErrSourceUnavailable},
		{name: "not found", status: http.StatusNotFound, body: map[string]any{"message": "missing"}, wantErr: common.ErrNotFound},
		{
			name:   "result set too large",
			status: http.StatusBadRequest,
			body: map[string]any{
				"message": "VS402337: The number of work items returned exceeds the size limit of 20000.",
			},
			wantErr: common.ErrResultSetTooLarge,
		},
		{name: "server error", status: http.StatusServiceUnavailable, body: map[string]any{"message": "down"}, wantErr: common.ErrMaxRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})

			_, err := client.QueryByFilter(context.Background(), service.QueryFilter{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(t, w, http.StatusBadGateway, map[string]any{"message": "try again"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":     42,
			"fields": map[string]any{"System.Title": "Checkout button misaligned"},
		})
	})

	item, err := client.GetByID(context.Background(), "", 42)
	require.NoError(t, err)
	assert.Equal(t, "Checkout button misaligned", item.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{OrganizationURL: url, Project: "Proj", PAT: "pat", RetryDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = client.GetByID(context.Background(), "Proj", 1)
	assert.ErrorIs(t, err, common.ErrSourceUnavailable)
}

func TestClient_GetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Other/_apis/wit/workitems/100", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "System.AreaPath")
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id": 100,
			"fields": map[string]any{
				"System.Title":        "Fix carousel ARIA attribute on PL UK",
				"System.AreaPath":     `Proj\PL-UK`,
				"System.WorkItemType": "Bug",
			},
		})
	})

	item, err := client.GetByID(context.Background(), "Other", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, item.ID)
	assert.Equal(t, `Proj\PL-UK`, item.AreaPath)
	assert.Equal(t, "Bug", item.Type)
}

func TestClient_GetLinks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "relations", r.URL.Query().Get("$expand"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":     100,
			"fields": map[string]any{"System.Title": "Source"},
			"relations": []map[string]any{
				{"rel": "System.LinkTypes.Dependency-Forward", "url": "https://dev.azure.com/org/_apis/wit/workItems/101"},
				{"rel": "AttachedFile", "url": "https://dev.azure.com/org/_apis/wit/attachments/abc"},
				{"rel": "System.LinkTypes.Hierarchy-Reverse", "url": "https://dev.azure.com/org/_apis/wit/workItems/7"},
				{"rel": "System.LinkTypes.Related", "url": "https://dev.azure.com/org/_apis/wit/workItems/100"},
			},
		})
	})

	links, err := client.GetLinks(context.Background(), "Proj", 100)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "System.LinkTypes.Dependency-Forward", links[0].Type)
	assert.Equal(t, 101, links[0].TargetID)
	assert.Equal(t, 7, links[1].TargetID)
}

func TestClient_ListTeams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_apis/projects/Proj/teams", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"value": []map[string]any{
				{"id": "t1", "name": "PL-UK"},
				{"id": "t2", "name": "Checkout"},
			},
			"count": 2,
		})
	})

	teams, err := client.ListTeams(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []service.TeamInfo{{Name: "PL-UK", ID: "t1"}, {Name: "Checkout", ID: "t2"}}, teams)
}

func TestClient_GetAreaPath(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		body   any
		status int
	}{
		{
			name:   "default value",
			status: http.StatusOK,
			body:   map[string]any{"defaultValue": `Proj\Checkout`, "values": []map[string]any{{"value": `Proj\Other`}}},
			want:   `Proj\Checkout`,
		},
		{
			name:   "first value when no default",
			status: http.StatusOK,
			body:   map[string]any{"values": []map[string]any{{"value": `Proj\Other`}}},
			want:   `Proj\Other`,
		},
		{name: "team without settings", status: http.StatusNotFound, body: map[string]any{"message": "no team"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/Proj/Checkout/_apis/work/teamsettings/teamfieldvalues", r.URL.Path)
				writeJSON(t, w, tt.status, tt.body)
			})

			got, err := client.GetAreaPath(context.Background(), "Proj", "Checkout")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkItemIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want int
		ok   bool
	}{
		{url: "https://dev.azure.com/org/_apis/wit/workItems/101", want: 101, ok: true},
		{url: "https://dev.azure.com/org/_apis/wit/workitems/5?api-version=7.1", want: 5, ok: true},
		{url: "https://dev.azure.com/org/_apis/wit/attachments/abc", ok: false},
		{url: "https://dev.azure.com/org/_apis/wit/workItems/abc", ok: false},
		{url: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := workItemIDFromURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

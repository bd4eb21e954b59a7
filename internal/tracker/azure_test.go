package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
)

type azureCall struct {
	Path       string
	APIVersion string
	Body       map[string]any
}

// newAzureServer serves canned WIQL and workitemsbatch responses and records
// every request it sees.
func newAzureServer(t *testing.T, status int, wiql, batch string) (*httptest.Server, *[]azureCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []azureCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		mu.Lock()
		calls = append(calls, azureCall{Path: r.URL.Path, APIVersion: r.URL.Query().Get("api-version"), Body: body})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message": "nope"}`))
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/_apis/wit/wiql"):
			_, _ = w.Write([]byte(wiql))
		case strings.HasSuffix(r.URL.Path, "/_apis/wit/workitemsbatch"):
			_, _ = w.Write([]byte(batch))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestAzureSource(t *testing.T, srv *httptest.Server) *AzureSource {
	t.Helper()
	src := NewAzureSource(AzureOptions{BaseURL: srv.URL, Organization: "contoso", Project: "shop", PAT: "secret"})
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestAzureSource_FetchChildren(t *testing.T) {
	wiql := `{"workItemRelations": [
		{"rel": null, "source": null, "target": {"id": 100}},
		{"rel": "System.LinkTypes.Hierarchy-Forward", "source": {"id": 100}, "target": {"id": 102}},
		{"rel": "System.LinkTypes.Hierarchy-Forward", "source": {"id": 100}, "target": {"id": 101}}
	]}`
	batch := `{"count": 2, "value": [
		{"id": 101, "fields": {"System.Title": "Paginate orders", "System.State": "Active",
			"System.WorkItemType": "User Story", "System.Tags": "api; perf",
			"System.AssignedTo": {"displayName": "Ada Lovelace", "uniqueName": "ada@contoso.com"}}},
		{"id": 102, "fields": {"System.Title": "Schema migration", "System.State": "New", "System.Parent": 100}}
	]}`
	srv, calls := newAzureServer(t, http.StatusOK, wiql, batch)
	src := newTestAzureSource(t, srv)

	items, err := src.FetchChildren(context.Background(), "100", []string{"Removed"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "102", items[0].ID)
	assert.Equal(t, "101", items[1].ID)
	assert.Equal(t, "100", items[1].ParentID)
	assert.Equal(t, "Ada Lovelace", items[1].AssignedTo)
	assert.Equal(t, []string{"api", "perf"}, items[1].Tags)
	assert.Equal(t, "User Story", items[1].Type)

	require.Len(t, *calls, 2)
	first := (*calls)[0]
	assert.Equal(t, "/contoso/shop/_apis/wit/wiql", first.Path)
	assert.Equal(t, "7.1", first.APIVersion)
	query, _ := first.Body["query"].(string)
	assert.Contains(t, query, "[Source].[System.Id] = 100")
	assert.Contains(t, query, "NOT IN ('Removed')")

	second := (*calls)[1]
	assert.Equal(t, "/contoso/shop/_apis/wit/workitemsbatch", second.Path)
	assert.Equal(t, []any{float64(102), float64(101)}, second.Body["ids"])
	assert.Equal(t, "omit", second.Body["errorPolicy"])
}

func TestAzureSource_FetchChildren_InvalidID(t *testing.T) {
	src := NewAzureSource(AzureOptions{Organization: "contoso", Project: "shop"})
	defer func() { _ = src.Close() }()

	_, err := src.FetchChildren(context.Background(), "abc", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid work item id")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestAzureSource_FetchDetailsBatch(t *testing.T) {
	batch := `{"count": 2, "value": [
		{"id": 101, "fields": {"System.Title": "Paginate orders",
			"System.Description": "<p>Add cursor pagination</p>",
			"Microsoft.VSTS.Common.AcceptanceCriteria": "50 rows per page",
			"System.ChangedDate": "2024-03-01T10:00:00.123Z"},
		 "relations": [
			{"rel": "System.LinkTypes.Dependency-Reverse", "url": "https://dev.azure.com/contoso/_apis/wit/workItems/102"},
			{"rel": "System.LinkTypes.Hierarchy-Forward", "url": "https://dev.azure.com/contoso/_apis/wit/workItems/110"},
			{"rel": "System.LinkTypes.Related", "url": "https://dev.azure.com/contoso/_apis/wit/workItems/150"},
			{"rel": "ArtifactLink", "url": "vstfs:///Git/PullRequestId/1", "attributes": {"name": "Pull Request"}},
			{"rel": "ArtifactLink", "url": "vstfs:///Git/Commit/1", "attributes": {"name": "Fixed in Commit"}}
		 ]},
		null
	]}`
	srv, calls := newAzureServer(t, http.StatusOK, `{}`, batch)
	src := newTestAzureSource(t, srv)

	details, err := src.FetchDetailsBatch(context.Background(), []string{"101", "999", "not-a-number"})
	require.NoError(t, err)
	require.Len(t, details, 1)

	d := details[0]
	assert.Equal(t, "101", d.ID)
	assert.Equal(t, []string{"102"}, d.BlockedBy)
	assert.Equal(t, 1, d.ChildCount)
	assert.Equal(t, 1, d.RelatedCount)
	assert.Equal(t, 1, d.LinkedPRCount)
	assert.Equal(t, 1, d.LinkedCommitCount)
	assert.Equal(t, "50 rows per page", d.AcceptanceCriteria)
	assert.False(t, d.ChangedAt.IsZero())

	require.Len(t, *calls, 1)
	assert.Equal(t, "relations", (*calls)[0].Body["$expand"])
	assert.Equal(t, []any{float64(101), float64(999)}, (*calls)[0].Body["ids"])
}

func TestAzureSource_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "forbidden", status: http.StatusForbidden, want: ErrAuthRequired},
		{name: "not found", status: http.StatusNotFound, want: ErrIssueNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newAzureServer(t, tt.status, "", "")
			src := newTestAzureSource(t, srv)

			_, err := src.FetchDetailsBatch(context.Background(), []string{"1"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAzureSource_BadPAT(t *testing.T) {
	srv, _ := newAzureServer(t, http.StatusOK, `{}`, `{}`)
	src := NewAzureSource(AzureOptions{BaseURL: srv.URL, Organization: "contoso", Project: "shop", PAT: "wrong"})
	defer func() { _ = src.Close() }()

	_, err := src.FetchChildren(context.Background(), "1", nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestAzureSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewAzureSource(AzureOptions{BaseURL: url, Organization: "contoso", Project: "shop"})
	defer func() { _ = src.Close() }()

	_, err := src.FetchDetailsBatch(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestAzureHelpers(t *testing.T) {
	assert.Equal(t, "42", idFromURL("https://dev.azure.com/o/_apis/wit/workItems/42"))
	assert.Empty(t, idFromURL("https://dev.azure.com/o/_apis/wit/workItems/"))
	assert.Empty(t, idFromURL("vstfs:///Git/Commit/abc"))

	assert.Equal(t, "Ada", identityField(map[string]any{"f": "Ada <ada@contoso.com>"}, "f"))
	assert.Equal(t, "ada@contoso.com", identityField(map[string]any{"f": map[string]any{"uniqueName": "ada@contoso.com"}}, "f"))
	assert.Empty(t, identityField(map[string]any{}, "f"))

	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"a", "b"}, splitTags("a; ;b"))

	q := childrenQuery(7, []string{"Won't Fix"})
	assert.Contains(t, q, "'Won''t Fix'")
	assert.True(t, strings.HasSuffix(q, "MODE (MustContain)"))
}

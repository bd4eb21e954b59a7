package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

const (
	azureAPIVersion = "7.1"
	// azureFieldsBatchLimit is the workitemsbatch ceiling for field-only reads.
	azureFieldsBatchLimit = 200
	azureRequestTimeout   = 60 * time.Second
)

// Azure DevOps link relation names.
const (
	relHierarchyForward = "System.LinkTypes.Hierarchy-Forward"
	relDependencyRev    = "System.LinkTypes.Dependency-Reverse"
	relRelated          = "System.LinkTypes.Related"
	relArtifact         = "ArtifactLink"
)

// shallowFields are requested when listing children.
var shallowFields = []string{
	"System.Id",
	"System.Title",
	"System.WorkItemType",
	"System.State",
	"System.AssignedTo",
	"System.Parent",
	"System.Tags",
}

// AzureOptions configures an AzureSource.
type AzureOptions struct {
	BaseURL      string
	Organization string
	Project      string
	PAT          string
}

// AzureSource implements Source against the Azure DevOps work item REST API.
type AzureSource struct {
	client *resty.Client
}

// NewAzureSource creates an AzureSource. The client authenticates with the
// personal access token as the basic-auth password.
func NewAzureSource(opts AzureOptions) *AzureSource {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://dev.azure.com"
	}
	base = base + "/" + url.PathEscape(opts.Organization) + "/" + url.PathEscape(opts.Project)

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(azureRequestTimeout).
		SetHeader("Accept", "application/json").
		SetQueryParam("api-version", azureAPIVersion)
	if opts.PAT != "" {
		client.SetBasicAuth("", opts.PAT)
	}
	return &AzureSource{client: client}
}

// Close releases the underlying HTTP client.
func (a *AzureSource) Close() error {
	return a.client.Close()
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlRef struct {
	ID int `json:"id"`
}

type wiqlResponse struct {
	WorkItemRelations []struct {
		Rel    string   `json:"rel"`
		Source *wiqlRef `json:"source"`
		Target *wiqlRef `json:"target"`
	} `json:"workItemRelations"`
}

type batchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields,omitempty"`
	Expand string   `json:"$expand,omitempty"`
	// ErrorPolicy "omit" returns null entries for unknown ids instead of failing.
	ErrorPolicy string `json:"errorPolicy,omitempty"`
}

type azureRelation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes"`
}

type azureWorkItem struct {
	ID        int             `json:"id"`
	Fields    map[string]any  `json:"fields"`
	Relations []azureRelation `json:"relations"`
}

type batchResponse struct {
	Count int             `json:"count"`
	Value []azureWorkItem `json:"value"`
}

// FetchChildren runs a hierarchy link query for parentID and reads the
// shallow fields of every child.
func (a *AzureSource) FetchChildren(ctx context.Context, parentID string, excludedStates []string) ([]workitem.WorkItem, error) {
	parent, err := strconv.Atoi(strings.TrimSpace(parentID))
	if err != nil {
		return nil, perrors.NewValidationError("invalid work item id").WithField("parent_id").WithValue(parentID)
	}

	var wiql wiqlResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(wiqlRequest{Query: childrenQuery(parent, excludedStates)}).
		SetResult(&wiql).
		Post("/_apis/wit/wiql")
	if err := classifyHTTP(resp, err); err != nil {
		return nil, fmt.Errorf("wiql query failed: %w", err)
	}

	var childIDs []int
	for _, r := range wiql.WorkItemRelations {
		if r.Rel != relHierarchyForward || r.Source == nil || r.Target == nil || r.Source.ID != parent {
			continue
		}
		childIDs = append(childIDs, r.Target.ID)
	}

	items := make([]workitem.WorkItem, 0, len(childIDs))
	for start := 0; start < len(childIDs); start += azureFieldsBatchLimit {
		chunk := childIDs[start:min(start+azureFieldsBatchLimit, len(childIDs))]
		fetched, err := a.batch(ctx, batchRequest{IDs: chunk, Fields: shallowFields, ErrorPolicy: "omit"})
		if err != nil {
			return nil, err
		}
		byID := make(map[int]azureWorkItem, len(fetched))
		for _, w := range fetched {
			byID[w.ID] = w
		}
		for _, id := range chunk {
			w, ok := byID[id]
			if !ok {
				continue
			}
			it := w.toWorkItem()
			if it.ParentID == "" {
				it.ParentID = strconv.Itoa(parent)
			}
			items = append(items, it)
		}
	}
	return items, nil
}

// FetchDetailsBatch reads all fields and relations for ids.
func (a *AzureSource) FetchDetailsBatch(ctx context.Context, ids []string) ([]workitem.Detail, error) {
	nums := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return nil, nil
	}

	fetched, err := a.batch(ctx, batchRequest{IDs: nums, Expand: "relations", ErrorPolicy: "omit"})
	if err != nil {
		return nil, err
	}

	details := make([]workitem.Detail, 0, len(fetched))
	for _, w := range fetched {
		details = append(details, w.toDetail())
	}
	return details, nil
}

func (a *AzureSource) batch(ctx context.Context, req batchRequest) ([]azureWorkItem, error) {
	var out batchResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/_apis/wit/workitemsbatch")
	if err := classifyHTTP(resp, err); err != nil {
		return nil, fmt.Errorf("work item batch failed: %w", err)
	}
	items := out.Value[:0]
	for _, w := range out.Value {
		if w.ID != 0 {
			items = append(items, w)
		}
	}
	return items, nil
}

// childrenQuery builds the WIQL link query for the direct children of parent.
func childrenQuery(parent int, excludedStates []string) string {
	var sb strings.Builder
	sb.WriteString("SELECT [System.Id] FROM WorkItemLinks WHERE ")
	fmt.Fprintf(&sb, "([Source].[System.Id] = %d) ", parent)
	fmt.Fprintf(&sb, "AND ([System.Links.LinkType] = '%s') ", relHierarchyForward)
	if len(excludedStates) > 0 {
		quoted := make([]string, len(excludedStates))
		for i, s := range excludedStates {
			quoted[i] = "'" + strings.ReplaceAll(s, "'", "''") + "'"
		}
		fmt.Fprintf(&sb, "AND ([Target].[System.State] NOT IN (%s)) ", strings.Join(quoted, ", "))
	}
	sb.WriteString("MODE (MustContain)")
	return sb.String()
}

func (w azureWorkItem) toWorkItem() workitem.WorkItem {
	it := workitem.WorkItem{
		ID:                 strconv.Itoa(w.ID),
		Title:              stringField(w.Fields, "System.Title"),
		Type:               stringField(w.Fields, "System.WorkItemType"),
		State:              stringField(w.Fields, "System.State"),
		AssignedTo:         identityField(w.Fields, "System.AssignedTo"),
		Tags:               splitTags(stringField(w.Fields, "System.Tags")),
		Description:        stringField(w.Fields, "System.Description"),
		AcceptanceCriteria: stringField(w.Fields, "Microsoft.VSTS.Common.AcceptanceCriteria"),
		ChangedAt:          timeField(w.Fields, "System.ChangedDate"),
	}
	if p, ok := w.Fields["System.Parent"].(float64); ok && p > 0 {
		it.ParentID = strconv.Itoa(int(p))
	}
	return it
}

func (w azureWorkItem) toDetail() workitem.Detail {
	it := w.toWorkItem()
	d := workitem.Detail{
		ID:                 it.ID,
		Title:              it.Title,
		AssignedTo:         it.AssignedTo,
		Tags:               it.Tags,
		Description:        it.Description,
		AcceptanceCriteria: it.AcceptanceCriteria,
		ChangedAt:          it.ChangedAt,
	}

	for _, r := range w.Relations {
		switch r.Rel {
		case relDependencyRev:
			if id := idFromURL(r.URL); id != "" {
				d.BlockedBy = append(d.BlockedBy, id)
			}
		case relHierarchyForward:
			d.ChildCount++
		case relRelated:
			d.RelatedCount++
		case relArtifact:
			name, _ := r.Attributes["name"].(string)
			switch {
			case strings.EqualFold(name, "Pull Request"):
				d.LinkedPRCount++
			case strings.Contains(strings.ToLower(name), "commit"):
				d.LinkedCommitCount++
			}
		}
	}
	return d
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// identityField reads an identity reference, which newer API versions return
// as an object and older ones as "Display Name <user@host>".
func identityField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case map[string]any:
		if name, ok := v["displayName"].(string); ok {
			return name
		}
		name, _ := v["uniqueName"].(string)
		return name
	case string:
		if i := strings.Index(v, " <"); i > 0 {
			return v[:i]
		}
		return v
	}
	return ""
}

func timeField(fields map[string]any, key string) time.Time {
	s := stringField(fields, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// idFromURL returns the trailing numeric id of a work item URL.
func idFromURL(u string) string {
	i := strings.LastIndex(u, "/")
	if i < 0 || i == len(u)-1 {
		return ""
	}
	id := u[i+1:]
	if _, err := strconv.Atoi(id); err != nil {
		return ""
	}
	return id
}

// classifyHTTP maps transport failures and error statuses onto tracker sentinels.
func classifyHTTP(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !resp.IsError() {
		return nil
	}

	body := strings.TrimSpace(resp.String())
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthRequired, resp.StatusCode())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrIssueNotFound, body)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), body)
	}
}

// Ensure AzureSource implements Source
var _ Source = (*AzureSource)(nil)

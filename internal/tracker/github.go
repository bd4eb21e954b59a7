package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// CommandExecutor is a function type that executes a command and returns its output.
// This allows for dependency injection in tests.
type CommandExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)

// commandWaitDelay bounds how long Wait may block on output pipes after the
// context kills a command, e.g. when gh leaves a helper process holding them.
const commandWaitDelay = 5 * time.Second

// defaultExecutor runs commands using os/exec.
var defaultExecutor CommandExecutor = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return newCommand(ctx, name, args...).CombinedOutput()
}

func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = commandWaitDelay
	return cmd
}

// maxIssueFetches caps concurrent gh invocations within one detail batch.
const maxIssueFetches = 4

// GitHubSource implements Source for GitHub sub-issues using the gh CLI.
// Issue numbers serve as work item ids.
type GitHubSource struct {
	repo     string
	command  string
	executor CommandExecutor
}

// NewGitHubSource creates a GitHubSource for repo ("owner/name") using the
// default command executor.
func NewGitHubSource(repo, command string) *GitHubSource {
	return NewGitHubSourceWithExecutor(repo, command, defaultExecutor)
}

// NewGitHubSourceWithExecutor creates a GitHubSource with a custom command
// executor for testing.
func NewGitHubSourceWithExecutor(repo, command string, executor CommandExecutor) *GitHubSource {
	if command == "" {
		command = "gh"
	}
	return &GitHubSource{
		repo:     repo,
		command:  command,
		executor: executor,
	}
}

// ghIssue is the subset of the REST issue payload we read.
type ghIssue struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	State    string `json:"state"`
	Body     string `json:"body"`
	Assignee *struct {
		Login string `json:"login"`
	} `json:"assignee"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	UpdatedAt        time.Time `json:"updated_at"`
	SubIssuesSummary *struct {
		Total int `json:"total"`
	} `json:"sub_issues_summary"`
	PullRequest *struct{} `json:"pull_request"`
}

// FetchChildren lists the sub-issues of parentID.
func (g *GitHubSource) FetchChildren(ctx context.Context, parentID string, excludedStates []string) ([]workitem.WorkItem, error) {
	num, err := parseIssueNumber(parentID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("repos/%s/issues/%d/sub_issues?per_page=100", g.repo, num)
	// --slurp wraps every page in one outer array.
	output, err := g.executor(ctx, g.command, "api", "--paginate", "--slurp", endpoint)
	if err != nil {
		return nil, g.classifyError(err, output)
	}

	var pages [][]ghIssue
	if err := json.Unmarshal(output, &pages); err != nil {
		return nil, perrors.Wrap(err, "failed to parse sub-issues response")
	}

	items := make([]workitem.WorkItem, 0, len(pages)*100)
	for _, is := range slices.Concat(pages...) {
		if is.PullRequest != nil {
			continue
		}
		it := is.toWorkItem()
		it.ParentID = strconv.Itoa(num)
		if isExcluded(it.State, excludedStates) {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// FetchDetailsBatch fetches each issue with a bounded fan-out. Any failure
// fails the whole batch so the caller can retry or degrade it as a unit.
func (g *GitHubSource) FetchDetailsBatch(ctx context.Context, ids []string) ([]workitem.Detail, error) {
	results := make([]*workitem.Detail, len(ids))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxIssueFetches)
	for i, id := range ids {
		eg.Go(func() error {
			d, err := g.fetchIssue(egCtx, id)
			if err != nil {
				if errors.Is(err, ErrIssueNotFound) {
					return nil
				}
				return err
			}
			results[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	details := make([]workitem.Detail, 0, len(ids))
	for _, d := range results {
		if d != nil {
			details = append(details, *d)
		}
	}
	return details, nil
}

func (g *GitHubSource) fetchIssue(ctx context.Context, id string) (*workitem.Detail, error) {
	num, err := parseIssueNumber(id)
	if err != nil {
		return nil, err
	}

	output, err := g.executor(ctx, g.command, "api", fmt.Sprintf("repos/%s/issues/%d", g.repo, num))
	if err != nil {
		return nil, g.classifyError(err, output)
	}

	var is ghIssue
	if err := json.Unmarshal(output, &is); err != nil {
		return nil, perrors.Wrapf(err, "failed to parse issue #%d", num)
	}

	it := is.toWorkItem()
	return &workitem.Detail{
		ID:                 it.ID,
		Title:              it.Title,
		AssignedTo:         it.AssignedTo,
		BlockedBy:          parseBlockedBy(is.Body),
		Tags:               it.Tags,
		LinkedPRCount:      countMatches(prLinkRegex, is.Body),
		RelatedCount:       countMatches(relatedRegex, is.Body),
		ChildCount:         it.ChildCount,
		Description:        stripSection(is.Body, "Acceptance Criteria"),
		AcceptanceCriteria: extractSection(is.Body, "Acceptance Criteria"),
		ChangedAt:          is.UpdatedAt,
	}, nil
}

func (is ghIssue) toWorkItem() workitem.WorkItem {
	it := workitem.WorkItem{
		ID:        strconv.Itoa(is.Number),
		Title:     is.Title,
		Type:      "Issue",
		State:     githubState(is.State),
		ChangedAt: is.UpdatedAt,
	}
	if is.Assignee != nil {
		it.AssignedTo = is.Assignee.Login
	}
	for _, l := range is.Labels {
		it.Tags = append(it.Tags, l.Name)
	}
	if is.SubIssuesSummary != nil {
		it.ChildCount = is.SubIssuesSummary.Total
	}
	return it
}

// githubState maps the REST state onto the planner vocabulary.
func githubState(s string) string {
	switch strings.ToLower(s) {
	case "closed":
		return "Closed"
	case "open":
		return "Open"
	default:
		return s
	}
}

var (
	blockedByRegex = regexp.MustCompile(`(?im)^\s*[-*]?\s*(?:blocked by|depends on)\s*:?\s*(.+)$`)
	issueRefRegex  = regexp.MustCompile(`#(\d+)`)
	prLinkRegex    = regexp.MustCompile(`(?i)/pull/\d+`)
	relatedRegex   = regexp.MustCompile(`(?im)^\s*[-*]?\s*related(?: to)?\s*:?\s*#\d+`)
)

// parseBlockedBy collects issue numbers from "Blocked by #N" and
// "Depends on #N" lines.
func parseBlockedBy(body string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, line := range blockedByRegex.FindAllStringSubmatch(body, -1) {
		for _, ref := range issueRefRegex.FindAllStringSubmatch(line[1], -1) {
			if !seen[ref[1]] {
				seen[ref[1]] = true
				ids = append(ids, ref[1])
			}
		}
	}
	return ids
}

func countMatches(re *regexp.Regexp, body string) int {
	return len(re.FindAllStringIndex(body, -1))
}

// sectionBounds locates a "## <name>" markdown section and returns the
// start of its heading, the start of its content and its end.
func sectionBounds(body, name string) (int, int, int, bool) {
	heading := regexp.MustCompile(`(?im)^#{2,3}\s+` + regexp.QuoteMeta(name) + `\s*$`)
	loc := heading.FindStringIndex(body)
	if loc == nil {
		return 0, 0, 0, false
	}
	rest := body[loc[1]:]
	next := regexp.MustCompile(`(?m)^#{1,3}\s+\S`).FindStringIndex(rest)
	end := len(body)
	if next != nil {
		end = loc[1] + next[0]
	}
	return loc[0], loc[1], end, true
}

// extractSection returns the trimmed content of a markdown section.
func extractSection(body, name string) string {
	_, start, end, ok := sectionBounds(body, name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(body[start:end])
}

// stripSection returns body without the named section.
func stripSection(body, name string) string {
	head, _, end, ok := sectionBounds(body, name)
	if !ok {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:head] + body[end:])
}

// classifyError analyzes the error and output from a gh command
// and returns a more specific error type when possible.
// Errors are wrapped to preserve context while enabling errors.Is() checks.
func (g *GitHubSource) classifyError(err error, output []byte) error {
	outStr := strings.ToLower(string(output))

	// Check for "executable file not found" which indicates gh is not installed
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, execErr)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	// Check for common error patterns in output
	switch {
	case strings.Contains(outStr, "not logged in") ||
		strings.Contains(outStr, "authentication required") ||
		strings.Contains(outStr, "gh auth login") ||
		strings.Contains(outStr, "bad credentials"):
		return fmt.Errorf("%w: %s", ErrAuthRequired, strings.TrimSpace(string(output)))

	case strings.Contains(outStr, "not found (http 404)") ||
		strings.Contains(outStr, "could not find issue") ||
		strings.Contains(outStr, "issue not found"):
		return fmt.Errorf("%w: %s", ErrIssueNotFound, strings.TrimSpace(string(output)))

	case strings.Contains(outStr, "could not resolve to a repository"):
		return fmt.Errorf("repository not found or not accessible: %s", strings.TrimSpace(string(output)))
	}

	// Return the original error with output for debugging
	return fmt.Errorf("gh command failed: %w\n%s", err, string(output))
}

// parseIssueNumber accepts "123", "#123" or an issue URL.
func parseIssueNumber(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if m := regexp.MustCompile(`/issues/(\d+)`).FindStringSubmatch(ref); m != nil {
		ref = m[1]
	}
	num, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil || num <= 0 {
		return 0, perrors.NewValidationError("invalid issue reference").WithField("issue").WithValue(ref)
	}
	return num, nil
}

// Ensure GitHubSource implements Source
var _ Source = (*GitHubSource)(nil)

package review

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// dependsOnPattern matches "Depends-On: #123" trailers in a revision body.
var dependsOnPattern = regexp.MustCompile(`(?mi)^Depends-On:\s*#(\d+)\s*$`)

// GitHubClient implements the review Client against pull requests: a
// revision is a PR, a diff is the PR's head commit, and builds are the
// check runs attached to it.
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
}

var _ Client = (*GitHubClient)(nil)

// NewGitHubClient creates a client for the given repository using the
// token from the environment (or the gh CLI as a fallback).
func NewGitHubClient(ctx context.Context, owner, repo string) (*GitHubClient, error) {
	token, err := getToken()
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &GitHubClient{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
	}, nil
}

// getToken gets a GitHub token from the environment or the gh CLI
func getToken() (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token, nil
	}
	out, err := exec.Command("gh", "auth", "token").Output()
	if err == nil {
		if token := strings.TrimSpace(string(out)); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("no GitHub token found (set GITHUB_TOKEN or run 'gh auth login')")
}

// ResolveRevisionForRef returns the open pull requests whose head is ref.
func (c *GitHubClient) ResolveRevisionForRef(ctx context.Context, ref string) ([]RevisionRecord, error) {
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		Head:  c.owner + ":" + ref,
		State: "open",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s: %w", ref, err)
	}

	records := make([]RevisionRecord, 0, len(prs))
	for _, pr := range prs {
		record, err := c.toRecord(ctx, pr)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// GetRevision fetches a pull request by number.
func (c *GitHubClient) GetRevision(ctx context.Context, id string) (*RevisionRecord, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(id, "#"))
	if err != nil {
		return nil, fmt.Errorf("invalid revision id %q: %w", id, err)
	}
	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}
	return c.toRecord(ctx, pr)
}

func (c *GitHubClient) toRecord(ctx context.Context, pr *github.PullRequest) (*RevisionRecord, error) {
	record := &RevisionRecord{
		ID:     strconv.Itoa(pr.GetNumber()),
		Title:  pr.GetTitle(),
		Status: StatusOther,
		Author: pr.GetUser().GetLogin(),
		DiffID: pr.GetHead().GetSHA(),
	}

	reviews, _, err := c.client.PullRequests.ListReviews(ctx, c.owner, c.repo, pr.GetNumber(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for #%d: %w", pr.GetNumber(), err)
	}
	// The latest non-comment review per reviewer decides; any outstanding
	// CHANGES_REQUESTED wins over approvals.
	latest := map[string]string{}
	for _, review := range reviews {
		state := review.GetState()
		if state != "APPROVED" && state != "CHANGES_REQUESTED" {
			continue
		}
		latest[review.GetUser().GetLogin()] = state
	}
	approved := false
	for _, state := range latest {
		if state == "CHANGES_REQUESTED" {
			record.Status = StatusChangesPlanned
			return record, nil
		}
		approved = true
	}
	if approved {
		record.Status = StatusAccepted
	}
	return record, nil
}

// BuildCommitMessage constructs the land commit message from the pull
// request title and body.
func (c *GitHubClient) BuildCommitMessage(ctx context.Context, revisionID string) (string, error) {
	number, err := strconv.Atoi(revisionID)
	if err != nil {
		return "", fmt.Errorf("invalid revision id %q: %w", revisionID, err)
	}
	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}

	var b strings.Builder
	b.WriteString(pr.GetTitle())
	if body := strings.TrimSpace(pr.GetBody()); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	fmt.Fprintf(&b, "\n\nCloses #%d", number)
	return b.String(), nil
}

// QueryBuildStatus returns the check runs for the diff's head commit.
func (c *GitHubClient) QueryBuildStatus(ctx context.Context, diffID string) ([]BuildStatus, error) {
	if diffID == "" {
		return nil, nil
	}
	runs, _, err := c.client.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, diffID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list check runs for %s: %w", diffID, err)
	}

	statuses := make([]BuildStatus, 0, runs.GetTotal())
	for _, run := range runs.CheckRuns {
		status := BuildStatus{Plan: run.GetName()}
		if run.GetStatus() != "completed" {
			status.State = BuildBuilding
		} else if run.GetConclusion() == "success" || run.GetConclusion() == "neutral" || run.GetConclusion() == "skipped" {
			status.State = BuildPassed
		} else {
			status.State = BuildFailed
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// FinalizeRevision closes the pull request. The landed commit references
// the PR, so the close shows up next to the merge.
func (c *GitHubClient) FinalizeRevision(ctx context.Context, revisionID string) error {
	number, err := strconv.Atoi(revisionID)
	if err != nil {
		return fmt.Errorf("invalid revision id %q: %w", revisionID, err)
	}
	closed := "closed"
	_, _, err = c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		State: &closed,
	})
	if err != nil {
		return fmt.Errorf("failed to close pull request #%d: %w", number, err)
	}
	return nil
}

// QueryOpenDependencies resolves "Depends-On: #N" trailers in the pull
// request body and returns the ones that are still open.
func (c *GitHubClient) QueryOpenDependencies(ctx context.Context, revisionID string) ([]RevisionRecord, error) {
	number, err := strconv.Atoi(revisionID)
	if err != nil {
		return nil, fmt.Errorf("invalid revision id %q: %w", revisionID, err)
	}
	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}

	var open []RevisionRecord
	for _, match := range dependsOnPattern.FindAllStringSubmatch(pr.GetBody(), -1) {
		depNumber, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		dep, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, depNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get dependency #%d: %w", depNumber, err)
		}
		if dep.GetState() == "open" {
			record, err := c.toRecord(ctx, dep)
			if err != nil {
				return nil, err
			}
			open = append(open, *record)
		}
	}
	return open, nil
}

// Package github wraps the GitHub REST API with rate limiting, bounded
// retries and a local user cache. Discovery is unusable unauthenticated
// (60 req/hour), so a token is required.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"
)

// Client wraps the GitHub API client with rate limiting.
type Client struct {
	client  *gh.Client
	limiter *rate.Limiter
	cache   *UserCache
	logger  *slog.Logger

	remaining atomic.Int64
	resetAt   atomic.Int64
}

// NewClient creates a rate-limited GitHub client. cache may be nil.
func NewClient(token string, rateLimit int, cache *UserCache) *Client {
	httpClient := gh.NewClient(nil).WithAuthToken(token)
	httpClient.Client().Timeout = 30 * time.Second

	c := &Client{
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		cache:   cache,
		logger:  slog.Default().With("component", "github"),
	}
	c.remaining.Store(-1)
	return c
}

// Remaining returns the last observed X-RateLimit-Remaining value, or -1
// before the first call.
func (c *Client) Remaining() int {
	return int(c.remaining.Load())
}

func (c *Client) track(resp *gh.Response) {
	if resp == nil {
		return
	}
	c.remaining.Store(int64(resp.Rate.Remaining))
	c.resetAt.Store(resp.Rate.Reset.Unix())
}

// CheckRateLimit queries /rate_limit and records the core budget.
func (c *Client) CheckRateLimit(ctx context.Context) (remaining int, reset time.Time, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limiter: %w", err)
	}
	limits, resp, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("check rate limit: %w", err)
	}
	c.track(resp)
	core := limits.GetCore()
	return core.Remaining, core.Reset.Time, nil
}

// User is the subset of the user endpoint the graph stores.
type User struct {
	Login       string     `json:"login"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Company     string     `json:"company"`
	Bio         string     `json:"bio"`
	Location    string     `json:"location"`
	Email       string     `json:"email"`
	Blog        string     `json:"blog"`
	Followers   int        `json:"followers"`
	Following   int        `json:"following"`
	PublicRepos int        `json:"public_repos"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// FetchUser gets a user, consulting the local cache first.
func (c *Client) FetchUser(ctx context.Context, username string) (*User, error) {
	if c.cache != nil {
		if u, ok := c.cache.Get(username); ok {
			return u, nil
		}
	}

	var user *gh.User
	err := c.do(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		user, resp, err = c.client.Users.Get(ctx, username)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", username, err)
	}

	u := &User{
		Login:       user.GetLogin(),
		Type:        user.GetType(),
		Name:        user.GetName(),
		Company:     user.GetCompany(),
		Bio:         user.GetBio(),
		Location:    user.GetLocation(),
		Email:       user.GetEmail(),
		Blog:        user.GetBlog(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		PublicRepos: user.GetPublicRepos(),
		FetchedAt:   time.Now(),
	}
	if c.cache != nil {
		c.cache.Put(u)
	}
	return u, nil
}

// Repository is the subset of the repository endpoint the graph stores.
type Repository struct {
	FullName    string
	Stars       int
	Forks       int
	Language    string
	Description string
}

func toRepository(r *gh.Repository) Repository {
	return Repository{
		FullName:    r.GetFullName(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Language:    r.GetLanguage(),
		Description: r.GetDescription(),
	}
}

// FetchRepository gets repository metadata.
func (c *Client) FetchRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var repo *gh.Repository
	err := c.do(ctx, func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		repo, resp, err = c.client.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch repository %s/%s: %w", owner, name, err)
	}
	r := toRepository(repo)
	return &r, nil
}

// Contributor is one entry from the contributors endpoint.
type Contributor struct {
	Login         string
	Type          string // "User", "Bot" or "Organization"
	Contributions int
}

// FetchContributors pages through a repository's contributors, 100 per
// page up to maxPages.
func (c *Client) FetchContributors(ctx context.Context, owner, name string, maxPages int) ([]Contributor, error) {
	opts := &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []Contributor
	for page := 0; page < maxPages; page++ {
		var contributors []*gh.Contributor
		var resp *gh.Response
		err := c.do(ctx, func() (*gh.Response, error) {
			var err error
			contributors, resp, err = c.client.Repositories.ListContributors(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return all, fmt.Errorf("fetch contributors %s/%s: %w", owner, name, err)
		}

		for _, contrib := range contributors {
			all = append(all, Contributor{
				Login:         contrib.GetLogin(),
				Type:          contrib.GetType(),
				Contributions: contrib.GetContributions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// FetchUserRepos pages through a user's owned repositories.
func (c *Client) FetchUserRepos(ctx context.Context, username string, maxPages int) ([]Repository, error) {
	opts := &gh.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []Repository
	for page := 0; page < maxPages; page++ {
		var repos []*gh.Repository
		var resp *gh.Response
		err := c.do(ctx, func() (*gh.Response, error) {
			var err error
			repos, resp, err = c.client.Repositories.ListByUser(ctx, username, opts)
			return resp, err
		})
		if err != nil {
			return all, fmt.Errorf("fetch user repos %s: %w", username, err)
		}

		for _, r := range repos {
			all = append(all, toRepository(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// FetchOrgRepos pages through an organization's repositories.
func (c *Client) FetchOrgRepos(ctx context.Context, org string, maxPages int) ([]Repository, error) {
	opts := &gh.RepositoryListByOrgOptions{
		Type:        "public",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []Repository
	for page := 0; page < maxPages; page++ {
		var repos []*gh.Repository
		var resp *gh.Response
		err := c.do(ctx, func() (*gh.Response, error) {
			var err error
			repos, resp, err = c.client.Repositories.ListByOrg(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			return all, fmt.Errorf("fetch org repos %s: %w", org, err)
		}

		for _, r := range repos {
			all = append(all, toRepository(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// FetchOrgMembers pages through an organization's public members.
func (c *Client) FetchOrgMembers(ctx context.Context, org string, maxPages int) ([]string, error) {
	opts := &gh.ListMembersOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var logins []string
	for page := 0; page < maxPages; page++ {
		var members []*gh.User
		var resp *gh.Response
		err := c.do(ctx, func() (*gh.Response, error) {
			var err error
			members, resp, err = c.client.Organizations.ListMembers(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			return logins, fmt.Errorf("fetch org members %s: %w", org, err)
		}

		for _, m := range members {
			logins = append(logins, m.GetLogin())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

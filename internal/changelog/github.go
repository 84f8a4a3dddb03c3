// Package changelog fetches the latest commit of the bot's repository
// from the GitHub API, for display in the info command. Failures are
// logged and swallowed; the feature is cosmetic.
package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"spisbot/pkg/logx"
)

type Client struct {
	owner string
	repo  string
	http  *http.Client
	log   logx.Logger

	mu     sync.RWMutex
	latest string
}

func New(owner, repo string, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		owner: owner,
		repo:  repo,
		http:  &http.Client{Timeout: 10 * time.Second},
		log:   log,
	}
}

// Latest returns the most recently fetched commit line, or empty when
// no fetch has succeeded yet.
func (c *Client) Latest() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Refresh fetches the newest commit. The error is returned for logging
// only; callers keep whatever value the previous fetch produced.
func (c *Client) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits?per_page=1", c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("github commits: http=%d", resp.StatusCode)
	}

	var commits []struct {
		SHA    string `json:"sha"`
		URL    string `json:"html_url"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return fmt.Errorf("github commits: decode: %w", err)
	}
	if len(commits) == 0 {
		return fmt.Errorf("github commits: empty response")
	}

	co := commits[0]
	sha := co.SHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	subject := co.Commit.Message
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = subject[:i]
	}

	line := fmt.Sprintf("%s - %s (%s)", sha, subject, co.Commit.Author.Date.Format("02.01.2006"))

	c.mu.Lock()
	c.latest = line
	c.mu.Unlock()

	c.log.Debug("changelog refreshed", logx.String("sha", sha))
	return nil
}

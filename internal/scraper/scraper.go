// Package scraper defines the LinkedIn enrichment provider contract and
// the PhantomBuster-backed implementation.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
)

// Experience is one employment entry from a scraped profile. DateRange is
// free text like "Nov 2022 - May 2023" or "May 2021 - Present".
type Experience struct {
	CompanyName string `json:"companyName"`
	Title       string `json:"title"`
	DateRange   string `json:"dateRange"`
	Location    string `json:"location"`
}

// Education is one education entry from a scraped profile.
type Education struct {
	SchoolName string `json:"schoolName"`
	Degree     string `json:"degree"`
	Field      string `json:"fieldOfStudy"`
}

// Profile is the structured result of scraping one LinkedIn URL.
type Profile struct {
	FirstName  string       `json:"firstName"`
	LastName   string       `json:"lastName"`
	Headline   string       `json:"headline"`
	Location   string       `json:"location"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
}

// Provider fetches a profile for a raw LinkedIn URL.
type Provider interface {
	FetchProfile(ctx context.Context, linkedinURL string) (*Profile, error)
}

// PhantomBuster calls the PhantomBuster scraping API.
type PhantomBuster struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewPhantomBuster creates the provider. baseURL defaults to the public
// API when empty.
func NewPhantomBuster(apiKey, baseURL string) *PhantomBuster {
	if baseURL == "" {
		baseURL = "https://api.phantombuster.com/api/v2"
	}
	return &PhantomBuster{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchProfile scrapes one profile.
func (pb *PhantomBuster) FetchProfile(ctx context.Context, linkedinURL string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/profile-scraper?profileUrl=%s",
		pb.baseURL, url.QueryEscape(linkedinURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build scraper request: %w", err)
	}
	req.Header.Set("X-Phantombuster-Key", pb.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := pb.client.Do(req)
	if err != nil {
		return nil, apperrors.Transient(err, "scraper request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NotFoundf("profile not found: %s", linkedinURL)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.RateLimited(fmt.Errorf("status %d", resp.StatusCode), "scraper throttled")
	case resp.StatusCode >= 500:
		return nil, apperrors.Transient(fmt.Errorf("status %d", resp.StatusCode), "scraper server error")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scraper returned %d: %s", resp.StatusCode, body)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode scraper response: %w", err)
	}
	return &profile, nil
}

package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "evcount/internal/log"
	"evcount/internal/store"
)

// maxFeedSize bounds a single feed download.
const maxFeedSize = 10 << 20

// FetchResult is the body of one feed, fresh or cached.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// cacheEntry is stored under "ics-cache:<hash>" in the application store.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	Body         []byte    `json:"body"`
}

// Fetcher downloads feeds with conditional requests, keeping the last good
// body in the store so an unreachable feed still yields its previous content.
type Fetcher struct {
	client *http.Client
	cache  store.Store
}

// NewFetcher uses client, or a 15s-timeout client when nil.
func NewFetcher(cache store.Store, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cache: cache}
}

// FetchAll fetches every source. Failed sources are logged and returned as
// errors; the results hold only sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	var (
		results []FetchResult
		errs    []error
	)
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}
	key := cacheKey(src.URL)
	cached, _ := f.loadCache(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	fromCache := func(reason string) (FetchResult, error) {
		appLog.Info("ics using cached body", "id", src.ID, "reason", reason)
		return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached.Body) > 0 {
			return fromCache(err.Error())
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
		if err != nil {
			return FetchResult{}, err
		}
		entry := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
			Body:         body,
		}
		if err := f.saveCache(key, entry); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID)
		}
		appLog.Info("ics fetched", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cached.Body) == 0 {
			return FetchResult{}, errors.New("304 Not Modified without a cached body")
		}
		return fromCache("not modified")

	default:
		if len(cached.Body) > 0 {
			return fromCache(resp.Status)
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "ics-cache:" + hex.EncodeToString(sum[:8])
}

func (f *Fetcher) loadCache(key string) (cacheEntry, error) {
	var e cacheEntry
	data, ok, err := f.cache.Load(key)
	if err != nil || !ok {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return cacheEntry{}, err
	}
	return e, nil
}

func (f *Fetcher) saveCache(key string, e cacheEntry) error {
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	return f.cache.Save(key, data)
}

// redactURL keeps scheme and host only; feed paths often carry secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultMediaFireBaseURL is the public MediaFire API host
const DefaultMediaFireBaseURL = "https://www.mediafire.com"

const mediaFireLinksPath = "/api/1.5/file/get_links.php"

// maxMediaFireBody caps how much of an API response is read
const maxMediaFireBody = 1 << 20

var mediaFireKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/([a-z0-9]+)(?:/|$)`),
	regexp.MustCompile(`\?([a-z0-9]+)$`),
}

// MediaFire resolves mediafire.com file pages through the public links API.
type MediaFire struct {
	client  *http.Client
	baseURL string
}

// NewMediaFire creates the adapter. A nil client gets a 30 second timeout;
// an empty baseURL uses DefaultMediaFireBaseURL.
func NewMediaFire(client *http.Client, baseURL string) *MediaFire {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultMediaFireBaseURL
	}
	return &MediaFire{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// MediaFireRoute returns the router entry for m
func MediaFireRoute(m *MediaFire) Route {
	return Route{
		Site: Site{
			Name:    "MediaFire",
			Example: "https://www.mediafire.com/file/example/file.apk",
			Notes:   "Single files",
		},
		Domains:  []string{"mediafire.com"},
		Resolver: m,
	}
}

// ExtractQuickKey pulls the file key out of a MediaFire page URL
func ExtractQuickKey(rawURL string) (string, bool) {
	for _, re := range mediaFireKeyPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

type mediaFireLinksResponse struct {
	Response struct {
		Result  string `json:"result"`
		Message string `json:"message"`
		Links   []struct {
			QuickKey       string `json:"quickkey"`
			DirectDownload string `json:"direct_download"`
		} `json:"links"`
	} `json:"response"`
}

// Resolve asks the links API for the file's direct download URL
func (m *MediaFire) Resolve(ctx context.Context, rawURL string) (string, error) {
	key, ok := ExtractQuickKey(rawURL)
	if !ok {
		return "", fmt.Errorf("no file key in url %q", rawURL)
	}

	query := url.Values{}
	query.Set("quickkey", key)
	query.Set("link_type", "direct_download")
	query.Set("response_format", "json")
	endpoint := m.baseURL + mediaFireLinksPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("links request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaFireBody))
	if err != nil {
		return "", fmt.Errorf("failed to read links response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("links request returned status %d", resp.StatusCode)
	}

	var decoded mediaFireLinksResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode links response: %w", err)
	}
	if strings.EqualFold(decoded.Response.Result, "error") {
		return "", fmt.Errorf("%w: %s", ErrNoLink, decoded.Response.Message)
	}

	for _, link := range decoded.Response.Links {
		if link.DirectDownload != "" {
			return link.DirectDownload, nil
		}
	}
	return "", ErrNoLink
}

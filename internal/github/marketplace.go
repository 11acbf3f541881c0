package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// MarketplaceURL returns the public Marketplace page for an action slug.
func (client *Client) MarketplaceURL(slug string) string {
	return client.webURL + "/marketplace/actions/" + slug
}

// MarketplaceListed reports whether the action's Marketplace page
// exists. Only a 200 counts as listed. It sends no credentials and
// changes nothing.
func (client *Client) MarketplaceListed(ctx context.Context, slug string) (bool, error) {
	url := client.MarketplaceURL(slug)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("github: creating request: %w", err)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return false, fmt.Errorf("github: GET %s: %w", url, err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseSize))

	client.logger.Debug("marketplace lookup", "slug", slug, "status", response.StatusCode)
	return response.StatusCode == http.StatusOK, nil
}

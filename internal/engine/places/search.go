package places

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

// SearchServiceError is an explicit error status reported by the service.
type SearchServiceError struct {
	Status  string
	Message string
}

func (e *SearchServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places status %s", e.Status)
	}
	return fmt.Sprintf("places status %s: %s", e.Status, e.Message)
}

type nearbyResponse struct {
	Results       []placeResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

type placeResult struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	Vicinity         string `json:"vicinity"`
	FormattedAddress string `json:"formatted_address"`
}

func (p placeResult) hit() model.SearchHit {
	addr := p.FormattedAddress
	if addr == "" {
		addr = p.Vicinity
	}
	return model.SearchHit{EntityID: p.PlaceID, Name: p.Name, Address: addr}
}

func statusOK(status string) bool {
	return status == "OK" || status == "ZERO_RESULTS"
}

// Search runs a keyword query around coord and follows continuation tokens
// until the service stops returning one or maxResults hits have been
// collected. Pages are separated by the configured page delay. The result is
// truncated to maxResults once, after the last page; maxResults <= 0 means no
// cap. An error status on any page fails the whole call.
func (c *Client) Search(ctx context.Context, keyword string, coord model.Coordinate, maxResults int) ([]model.SearchHit, error) {
	base := url.Values{}
	base.Set("location", strconv.FormatFloat(coord.Lat, 'f', -1, 64)+","+strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	base.Set("radius", strconv.FormatFloat(c.cfg.Radius, 'f', 0, 64))
	base.Set("keyword", keyword)

	var hits []model.SearchHit
	token := ""
	for page := 0; ; page++ {
		params := url.Values{}
		if token == "" {
			for k, v := range base {
				params[k] = v
			}
		} else {
			if err := sleep(ctx, c.cfg.PageDelay); err != nil {
				return nil, err
			}
			params.Set("pagetoken", token)
		}

		var resp nearbyResponse
		if err := c.getJSON(ctx, "places search", "nearbysearch", params, &resp); err != nil {
			return nil, err
		}
		if !statusOK(resp.Status) {
			return nil, apperr.Upstream("places search", &SearchServiceError{Status: resp.Status, Message: resp.ErrorMessage})
		}

		for _, r := range resp.Results {
			if r.PlaceID == "" {
				continue
			}
			hits = append(hits, r.hit())
		}
		c.log.Debug("search page",
			zap.String("keyword", keyword),
			zap.Int("page", page),
			zap.Int("results", len(resp.Results)),
			zap.Bool("more", resp.NextPageToken != ""))

		token = resp.NextPageToken
		if token == "" || (maxResults > 0 && len(hits) >= maxResults) {
			break
		}
	}

	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits, nil
}

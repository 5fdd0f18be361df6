package places

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

const detailFields = "name,formatted_address,website,formatted_phone_number,rating,user_ratings_total,business_status"

type detailsResponse struct {
	Result       placeDetails `json:"result"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
}

type placeDetails struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Website          string   `json:"website"`
	Phone            string   `json:"formatted_phone_number"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	BusinessStatus   string   `json:"business_status"`
}

// Details resolves a place id into a full record.
func (c *Client) Details(ctx context.Context, entityID string) (model.EnrichedRecord, error) {
	params := url.Values{}
	params.Set("place_id", entityID)
	params.Set("fields", detailFields)

	var resp detailsResponse
	if err := c.getJSON(ctx, "places details", "details", params, &resp); err != nil {
		return model.EnrichedRecord{}, err
	}
	if resp.Status != "OK" {
		return model.EnrichedRecord{}, apperr.Upstream("places details", &SearchServiceError{Status: resp.Status, Message: resp.ErrorMessage})
	}

	d := resp.Result
	return model.EnrichedRecord{
		SearchHit: model.SearchHit{
			EntityID: entityID,
			Name:     d.Name,
			Address:  d.FormattedAddress,
		},
		Website:     d.Website,
		Phone:       d.Phone,
		Rating:      d.Rating,
		ReviewCount: d.UserRatingsTotal,
		Status:      model.ParseOperatingStatus(d.BusinessStatus),
	}, nil
}

// Enrich is Details with failures folded into an empty record. Only the
// entity id is set on the empty record, so every rule needing data rejects it.
func (c *Client) Enrich(ctx context.Context, entityID string) model.EnrichedRecord {
	rec, err := c.Details(ctx, entityID)
	if err != nil {
		c.log.Warn("enrichment failed",
			zap.String("entity_id", entityID),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return model.EnrichedRecord{
			SearchHit: model.SearchHit{EntityID: entityID},
			Status:    model.StatusUnknown,
		}
	}
	return rec
}

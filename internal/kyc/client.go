package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/retry"
	"txguard/pkg/platform/sentinel"
)

const serviceName = "kyc"

// Client calls the identity service over HTTP:
//
//	GET {base}/v1/profiles/{party_id} -> {"party_id","risk_tier","verification_status"}
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	policy  retry.Policy
}

// NewClient builds a client. timeout bounds each attempt; policy bounds retries.
func NewClient(baseURL string, timeout time.Duration, policy retry.Policy, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: httpClient, timeout: timeout, policy: policy}
}

// Profile implements Service. Unknown parties return sentinel.ErrNotFound.
func (c *Client) Profile(ctx context.Context, partyID id.PartyID) (models.KYCProfile, error) {
	var profile models.KYCProfile
	_, err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		p, err := c.fetch(ctx, partyID)
		if err != nil {
			if models.IsRetryable(err) {
				return err
			}
			return retry.Permanent(err)
		}
		profile = p
		return nil
	})
	if err != nil {
		var ese *models.ExternalServiceError
		if errors.As(err, &ese) && ese.Category == models.ErrorNotFound {
			return models.KYCProfile{}, sentinel.ErrNotFound
		}
		return models.KYCProfile{}, err
	}
	return profile, nil
}

func (c *Client) fetch(ctx context.Context, partyID id.PartyID) (models.KYCProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/v1/profiles/" + url.PathEscape(partyID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.KYCProfile{}, models.NewExternalServiceError(serviceName, models.ErrorRejected, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.KYCProfile{}, models.NewExternalServiceError(serviceName, models.ErrorTimeout, err)
		}
		return models.KYCProfile{}, models.NewExternalServiceError(serviceName, models.ErrorOutage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.KYCProfile{}, models.ClassifyHTTPStatus(serviceName, resp.StatusCode)
	}
	var p models.KYCProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return models.KYCProfile{}, models.NewExternalServiceError(serviceName, models.ErrorBadData, fmt.Errorf("decode profile: %w", err))
	}
	if p.PartyID == "" {
		p.PartyID = partyID
	}
	return p, nil
}

package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultVerificationEndpoint is Google's siteverify endpoint.
	DefaultVerificationEndpoint = "https://www.google.com/recaptcha/api/siteverify"
	// MinimumTrustScore is the lowest score accepted as a human interaction.
	MinimumTrustScore = 0.4

	defaultRequestTimeout = 10 * time.Second

	formFieldSecret   = "secret"
	formFieldResponse = "response"
)

var (
	// ErrMissingToken indicates the submission carried no verification token.
	ErrMissingToken = errors.New("recaptcha: missing token")
	// ErrVerificationFailed indicates the token was rejected, scored below the
	// trust threshold, or could not be verified at all.
	ErrVerificationFailed = errors.New("recaptcha: verification failed")
)

// Verifier exchanges a client-supplied token with the verification service.
// A nil error means the token passed.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// siteVerifyResponse mirrors the verification service's JSON response.
type siteVerifyResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// SiteVerifier verifies tokens against the remote siteverify endpoint using a
// shared secret. A single verification attempt is made per call; any network
// failure or malformed response fails the verification.
type SiteVerifier struct {
	httpClient   *http.Client
	endpoint     string
	secretKey    string
	minimumScore float64
}

// NewSiteVerifier constructs a SiteVerifier against the default endpoint.
func NewSiteVerifier(secretKey string) *SiteVerifier {
	return &SiteVerifier{
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
		endpoint:     DefaultVerificationEndpoint,
		secretKey:    secretKey,
		minimumScore: MinimumTrustScore,
	}
}

// WithEndpoint overrides the verification endpoint.
func (verifier *SiteVerifier) WithEndpoint(endpoint string) *SiteVerifier {
	verifier.endpoint = endpoint
	return verifier
}

// WithHTTPClient overrides the HTTP client used for verification calls.
func (verifier *SiteVerifier) WithHTTPClient(httpClient *http.Client) *SiteVerifier {
	verifier.httpClient = httpClient
	return verifier
}

// Verify exchanges the token for a verdict. The token passes only when the
// service reports success and the trust score reaches the threshold.
func (verifier *SiteVerifier) Verify(ctx context.Context, token string) error {
	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return ErrMissingToken
	}

	requestBody := url.Values{}
	requestBody.Set(formFieldSecret, verifier.secretKey)
	requestBody.Set(formFieldResponse, trimmedToken)

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, verifier.endpoint, strings.NewReader(requestBody.Encode()))
	if requestErr != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, requestErr)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, callErr := verifier.httpClient.Do(request)
	if callErr != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, callErr)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrVerificationFailed, response.StatusCode)
	}

	var verdict siteVerifyResponse
	if decodeErr := json.NewDecoder(response.Body).Decode(&verdict); decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, decodeErr)
	}

	if !verdict.Success {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, strings.Join(verdict.ErrorCodes, ","))
	}
	if verdict.Score < verifier.minimumScore {
		return fmt.Errorf("%w: score %.2f below threshold", ErrVerificationFailed, verdict.Score)
	}
	return nil
}

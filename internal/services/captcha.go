package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Captcha versions accepted on login. v3 is invisible and scored; v2 is the
// interactive checkbox the client escalates to when the score is too low.
const (
	CaptchaV3 = "v3"
	CaptchaV2 = "v2"
)

// CaptchaResult is the verification answer returned to clients.
type CaptchaResult struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
}

// CaptchaVerifier checks tokens against the provider's siteverify endpoint.
type CaptchaVerifier struct {
	verifyURL  string
	secret     string
	minScore   float64
	httpClient *http.Client
}

func NewCaptchaVerifier(verifyURL, secret string, minScore float64, timeout time.Duration) *CaptchaVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CaptchaVerifier{
		verifyURL:  verifyURL,
		secret:     secret,
		minScore:   minScore,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a secret is configured. Without one every token
// verifies, which is only meant for local development.
func (v *CaptchaVerifier) Enabled() bool { return v.secret != "" }

// MinScore is the lowest v3 score accepted.
func (v *CaptchaVerifier) MinScore() float64 { return v.minScore }

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify asks the provider about token. v2 answers carry no score; a
// successful one is reported with score 1.
func (v *CaptchaVerifier) Verify(ctx context.Context, token string) (CaptchaResult, error) {
	if !v.Enabled() {
		return CaptchaResult{Success: true, Score: 1}, nil
	}
	if strings.TrimSpace(token) == "" {
		return CaptchaResult{}, nil
	}

	form := url.Values{"secret": {v.secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return CaptchaResult{}, fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return CaptchaResult{}, fmt.Errorf("captcha: verify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CaptchaResult{}, fmt.Errorf("captcha: verify: status %d", resp.StatusCode)
	}

	var decoded siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return CaptchaResult{}, fmt.Errorf("captcha: decode: %w", err)
	}
	if !decoded.Success && len(decoded.ErrorCodes) > 0 {
		log.Printf("[CAPTCHA] Rejected: %s", strings.Join(decoded.ErrorCodes, ","))
	}
	out := CaptchaResult{Success: decoded.Success}
	switch {
	case decoded.Score != nil:
		out.Score = *decoded.Score
	case decoded.Success:
		out.Score = 1
	}
	return out, nil
}

// Passes applies the acceptance rule for version: v2 needs success, v3
// additionally needs the minimum score.
func (v *CaptchaVerifier) Passes(r CaptchaResult, version string) bool {
	if !r.Success {
		return false
	}
	if version == CaptchaV2 {
		return true
	}
	return r.Score >= v.minScore
}

package pdfbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxBodySize bounds one downloaded document.
const maxBodySize = 256 << 20

// signInHost serves the Google sign-in page private documents redirect to.
const signInHost = "accounts.google.com"

// response is a fully read HTTP answer.
type response struct {
	body        []byte
	contentType string
	finalURL    *url.URL
}

// isHTML reports whether the answer is an HTML page, by header or sniffing.
func (r *response) isHTML() bool {
	ct := strings.ToLower(r.contentType)
	if ct == "" {
		ct = strings.ToLower(http.DetectContentType(r.body))
	}
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// get fetches rawURL within ctx. Every failure is a *FetchError:
// deadline → timeout, 401/403 or a sign-in redirect → auth-required,
// other non-2xx → http-error:<code>, transport errors → network-error.
func (s *settings) get(ctx context.Context, rawURL string) (*response, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonInvalidURL, Err: fmt.Errorf("%w: %v", ErrCanonicalization, err)}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: transportReason(err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	finalURL := resp.Request.URL
	if isSignInURL(finalURL) {
		return nil, &FetchError{URL: rawURL, Reason: ReasonAuthRequired, Err: errors.New("redirected to sign-in page")}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &FetchError{URL: rawURL, Reason: ReasonAuthRequired, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &FetchError{URL: rawURL, Reason: HTTPErrorReason(resp.StatusCode), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: transportReason(err), Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, &FetchError{URL: rawURL, Reason: ReasonUnsupportedContent, Err: fmt.Errorf("body exceeds %d bytes", maxBodySize)}
	}

	return &response{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		finalURL:    finalURL,
	}, nil
}

// isSignInURL reports whether u is a Google sign-in page.
func isSignInURL(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), signInHost) || strings.Contains(u.Path, "ServiceLogin")
}

// transportReason classifies a request error.
func transportReason(err error) FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetworkError
}

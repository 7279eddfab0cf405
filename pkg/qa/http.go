package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

const (
	DefaultEndpoint = "http://localhost:5000/ask"
	DefaultTimeout  = 30 * time.Second

	maxResponseBytes = 1 << 20
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer     *string         `json:"answer"`
	HasLinks   bool            `json:"hasLinks"`
	Links      []wireLinkGroup `json:"links"`
	Intent     any             `json:"intent"`
	Source     any             `json:"source"`
	Confidence any             `json:"confidence"`
}

type wireLinkGroup struct {
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Links    []string `json:"links"`
}

// HTTPClient asks the question-answering service over HTTP.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

var _ Client = (*HTTPClient)(nil)

type HTTPOption func(*HTTPClient)

func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPClient) { h.userAgent = ua }
}

func NewHTTPClient(endpoint string, opts ...HTTPOption) (*HTTPClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid endpoint %q", endpoint)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("endpoint %q must be an absolute http(s) URL", endpoint)
	}
	h := &HTTPClient{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "itb-chat",
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

func (h *HTTPClient) Endpoint() string { return h.endpoint }

func (h *HTTPClient) Ask(ctx context.Context, question string) (Answer, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return Answer{}, errors.Wrap(err, "failed to encode question")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return Answer{}, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return Answer{}, &TransportError{Endpoint: h.endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return Answer{}, &TransportError{Endpoint: h.endpoint, Err: errors.Wrap(err, "failed to read response body")}
	}
	log.Debug().
		Str("component", "qa_http").
		Str("endpoint", h.endpoint).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("qa response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Answer{}, &ProtocolError{Endpoint: h.endpoint, StatusCode: resp.StatusCode, Reason: "non-success status"}
	}
	if len(raw) > maxResponseBytes {
		return Answer{}, &ProtocolError{Endpoint: h.endpoint, StatusCode: resp.StatusCode, Reason: "response body too large"}
	}

	ans, err := decodeAnswer(raw)
	if err != nil {
		return Answer{}, &ProtocolError{Endpoint: h.endpoint, StatusCode: resp.StatusCode, Reason: "malformed response body", Err: err}
	}
	return ans, nil
}

// decodeAnswer validates the response shape. Only "answer" is required.
func decodeAnswer(raw []byte) (Answer, error) {
	var r askResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Answer{}, errors.Wrap(err, "invalid json")
	}
	if r.Answer == nil {
		return Answer{}, errors.New(`missing "answer" field`)
	}
	ans := Answer{
		Text:     *r.Answer,
		HasLinks: r.HasLinks,
	}
	if len(r.Links) > 0 {
		ans.Links = make([]chat.LinkGroup, 0, len(r.Links))
		for _, g := range r.Links {
			ans.Links = append(ans.Links, chat.LinkGroup{
				Category: g.Category,
				Content:  g.Content,
				URLs:     g.Links,
			})
		}
	}
	if s, ok := r.Intent.(string); ok {
		ans.Intent = s
	}
	if s, ok := r.Source.(string); ok {
		ans.Source = s
	}
	if f, ok := r.Confidence.(float64); ok {
		ans.Confidence = f
	}
	return ans, nil
}

package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	haclient "github.com/mkelcik/go-ha-client/v2"

	"github.com/njoerd114/placereminder/internal/notify"
)

// RESTClient is the subset of Home Assistant REST operations used by the
// adapter. Defining it as an interface allows mock injection in tests.
type RESTClient interface {
	Ping(ctx context.Context) error
	// CallService POSTs to /api/services/<domain>/<service> without
	// return_response. notify.* services return no data.
	CallService(ctx context.Context, domain, service string, body io.Reader) error
	// Services GETs /api/services, the catalogue of callable services.
	Services(ctx context.Context) ([]ServiceDomain, error)
}

// haClientWrapper wraps [haclient.Client] for the connection check and adds
// the plain REST calls the client does not cover.
type haClientWrapper struct {
	client  *haclient.Client
	baseURL string
	token   string
	hc      *http.Client
}

func (w *haClientWrapper) Ping(ctx context.Context) error {
	return w.client.Ping(ctx)
}

// CallService POSTs the body to /api/services/<domain>/<service> without
// appending ?return_response. 400 and 401 are marked [Permanent].
func (w *haClientWrapper) CallService(ctx context.Context, domain, service string, body io.Reader) error {
	endpoint := fmt.Sprintf("%s/api/services/%s/%s",
		strings.TrimRight(w.baseURL, "/"),
		url.PathEscape(domain),
		url.PathEscape(service),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Permanent(fmt.Errorf("create service request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		var br struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&br)
		return Permanent(errors.New(br.Message))
	}
	return checkStatus(resp)
}

// Services fetches the service catalogue.
func (w *haClientWrapper) Services(ctx context.Context) ([]ServiceDomain, error) {
	endpoint := strings.TrimRight(w.baseURL, "/") + "/api/services"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("create services request: %w", err))
	}

	resp, err := w.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var domains []ServiceDomain
	if err := json.NewDecoder(resp.Body).Decode(&domains); err != nil {
		return nil, fmt.Errorf("parse services response: %w", err)
	}
	return domains, nil
}

func (w *haClientWrapper) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+w.token)
	resp, err := w.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Permanent(errors.New("HA returned 401 Unauthorized, check home_assistant.token"))
	case resp.StatusCode == http.StatusNotFound:
		return Permanent(fmt.Errorf("HA returned 404 for %s", resp.Request.URL.Path))
	case resp.StatusCode >= 300:
		return fmt.Errorf("HA returned unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Adapter sends reminder notifications through a Home Assistant notify
// service, typically notify.mobile_app_<device>. Create one with
// [NewAdapter] or [NewAdapterWithClient].
type Adapter struct {
	rest    RESTClient
	service string
	logger  *slog.Logger
}

// NewAdapter creates an Adapter backed by a real HA REST client. service is
// the notify service, with or without the "notify." prefix.
func NewAdapter(haURL, token, service string, logger *slog.Logger) (*Adapter, error) {
	rest, err := haclient.NewClient(haURL,
		haclient.WithToken(token),
		haclient.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create HA REST client: %w", err)
	}

	wrapper := &haClientWrapper{
		client:  rest,
		baseURL: haURL,
		token:   token,
		hc:      &http.Client{},
	}
	return NewAdapterWithClient(wrapper, service, logger), nil
}

// NewAdapterWithClient creates an Adapter with a caller-supplied REST client.
// Intended for testing with a mock [RESTClient].
func NewAdapterWithClient(rest RESTClient, service string, logger *slog.Logger) *Adapter {
	return &Adapter{rest: rest, service: serviceName(service), logger: logger}
}

// Ping validates the HA connection and token with retry.
func (a *Adapter) Ping(ctx context.Context) error {
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.rest.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("ping HA: %w", err)
	}
	return nil
}

// Name implements [notify.Notifier].
func (a *Adapter) Name() string { return "homeassistant" }

// Service returns the notify service name without the domain prefix.
func (a *Adapter) Service() string { return a.service }

// Notify pushes n to the configured notify service. Tapping the notification
// opens n.Link.
func (a *Adapter) Notify(ctx context.Context, n notify.Notification) error {
	if a.service == "" {
		return errors.New("no notify service configured")
	}

	data := buildNotifyData(n)
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.rest.CallService(ctx, domainNotify, a.service, serviceBody(data))
	})
	if err != nil {
		return fmt.Errorf("notify.%s for reminder %s: %w", a.service, n.ReminderID, err)
	}
	a.logger.Debug("HA notification sent", "service", a.service, "reminder_id", n.ReminderID)
	return nil
}

// NotifyServices returns the mobile app notify services, sorted, without the
// "notify." prefix.
func (a *Adapter) NotifyServices(ctx context.Context) ([]string, error) {
	var domains []ServiceDomain
	err := Retry(ctx, defaultMaxAttempts, func() error {
		var callErr error
		domains, callErr = a.rest.Services(ctx)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("list HA services: %w", err)
	}
	return mobileAppServices(domains), nil
}

// serviceBody marshals data to a JSON [io.Reader] for service calls.
func serviceBody(data map[string]any) io.Reader {
	b, _ := json.Marshal(data) //nolint:errcheck // map of strings always marshals
	return bytes.NewReader(b)
}

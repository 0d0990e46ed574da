package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"payment-router/internal/config"
	"payment-router/internal/dtos"
	"payment-router/internal/entities"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errMalformedHealth = errors.New("malformed health check body")

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
		DisableKeepAlives:   false,
	},
}

type Processor struct {
	url    string
	client *http.Client
}

func NewPaymentProcessor(url string) *Processor {
	return NewPaymentProcessorWithClient(url, httpClient)
}

func NewPaymentProcessorWithClient(url string, client *http.Client) *Processor {
	return &Processor{
		url:    url,
		client: client,
	}
}

func (pp *Processor) URL() string {
	return pp.url
}

func (pp *Processor) Healthcheck(ctx context.Context) (entities.GatewayHealth, error) {
	url := fmt.Sprintf("%s/payments/service-health", pp.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entities.GatewayHealth{}, fmt.Errorf("creating health request: %w", err)
	}

	resp, err := pp.client.Do(req)
	if err != nil {
		return entities.GatewayHealth{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return entities.GatewayHealth{}, fmt.Errorf("payment processor returned status %d: %s", resp.StatusCode, string(body))
	}

	var health dtos.HealthCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return entities.GatewayHealth{}, fmt.Errorf("%w: %v", errMalformedHealth, err)
	}

	if health.Failing == nil || health.MinResponseTime == nil {
		return entities.GatewayHealth{}, errMalformedHealth
	}

	return entities.GatewayHealth{
		Failing:         *health.Failing,
		MinResponseTime: *health.MinResponseTime,
	}, nil
}

func (pp *Processor) Process(ctx context.Context, payment entities.PendingPayment, requestedAt time.Time) (int, error) {
	url := fmt.Sprintf("%s/payments", pp.url)

	request := dtos.PaymentProcessorRequest{
		CorrelationId: payment.CorrelationId,
		Amount:        payment.Amount,
		RequestedAt:   requestedAt.UTC().Format(config.DateTimeFormat),
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, fmt.Errorf("creating payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pp.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send payment request: %w", err)
	}
	defer resp.Body.Close()

	// drain so the connection goes back to the pool
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

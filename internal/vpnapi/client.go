// Package vpnapi реализует HTTP-клиент внешнего API подписок Mini-App:
// тарифы, статус пользователя, создание ключа, конфигурация, докупка трафика
// и бесплатный режим.
package vpnapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/vpn-miniapp/internal/models"
)

// Эндпоинты API.
const (
	EndpointTariffs  = "/tariffs"
	EndpointStatus   = "/user/status"
	EndpointCreate   = "/user/create"
	EndpointConfig   = "/user/config"
	EndpointBuyExtra = "/user/buy-extra"
	EndpointFreeMode = "/user/free-mode"
)

const maxErrorBody = 1 << 20

// Observer получает сведения о каждом выполненном запросе.
type Observer interface {
	ObserveRequest(endpoint string, code int, d time.Duration)
}

// Client — клиент API подписок.
type Client struct {
	apiURL     string
	httpClient *http.Client
	observer   Observer
	validate   *validator.Validate
}

// Option настраивает Client.
type Option func(*Client)

// WithObserver подключает учёт запросов (метрики).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient создаёт клиент API с базовым адресом apiURL.
func NewClient(apiURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do выполняет запрос и декодирует успешный ответ в out.
// Для ответов не из 2xx возвращает *APIError.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return err
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body models.ErrorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(endpoint string, code int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, code, time.Since(start))
	}
}

func byTelegramID(telegramID int64) url.Values {
	return url.Values{"telegram_id": []string{strconv.FormatInt(telegramID, 10)}}
}

// Tariffs возвращает тарифы.
func (c *Client) Tariffs(ctx context.Context) (*models.Tariff, error) {
	const op = "vpnapi.Tariffs"
	req, err := c.newRequest(ctx, http.MethodGet, EndpointTariffs, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var tariff models.Tariff
	if err := c.do(req, EndpointTariffs, &tariff); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.validate.Struct(&tariff); err != nil {
		return nil, fmt.Errorf("%s: invalid tariff: %w", op, err)
	}
	return &tariff, nil
}

// Status возвращает статус пользователя. Если аккаунта нет, ошибка удовлетворяет
// errors.Is(err, ErrNotFound).
func (c *Client) Status(ctx context.Context, telegramID int64) (*models.UserStatus, error) {
	const op = "vpnapi.Status"
	req, err := c.newRequest(ctx, http.MethodGet, EndpointStatus, byTelegramID(telegramID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var status models.UserStatus
	if err := c.do(req, EndpointStatus, &status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &status, nil
}

// Create создаёт VPN-ключ и возвращает его конфигурацию.
func (c *Client) Create(ctx context.Context, telegramID int64) (*models.CreateResult, error) {
	const op = "vpnapi.Create"
	req, err := c.newRequest(ctx, http.MethodPost, EndpointCreate, nil, models.TelegramIDRequest{TelegramID: telegramID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res models.CreateResult
	if err := c.do(req, EndpointCreate, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

// Config возвращает конфигурацию подключения пользователя.
func (c *Client) Config(ctx context.Context, telegramID int64) (string, error) {
	const op = "vpnapi.Config"
	req, err := c.newRequest(ctx, http.MethodGet, EndpointConfig, byTelegramID(telegramID), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var res models.ConfigResult
	if err := c.do(req, EndpointConfig, &res); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return res.Config, nil
}

// BuyExtra покупает дополнительный трафик.
func (c *Client) BuyExtra(ctx context.Context, telegramID int64) (*models.BuyExtraResult, error) {
	const op = "vpnapi.BuyExtra"
	req, err := c.newRequest(ctx, http.MethodPost, EndpointBuyExtra, nil, models.TelegramIDRequest{TelegramID: telegramID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res models.BuyExtraResult
	if err := c.do(req, EndpointBuyExtra, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

// FreeMode включает бесплатный режим и возвращает новую конфигурацию.
func (c *Client) FreeMode(ctx context.Context, telegramID int64) (*models.FreeModeResult, error) {
	const op = "vpnapi.FreeMode"
	req, err := c.newRequest(ctx, http.MethodPost, EndpointFreeMode, nil, models.TelegramIDRequest{TelegramID: telegramID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res models.FreeModeResult
	if err := c.do(req, EndpointFreeMode, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

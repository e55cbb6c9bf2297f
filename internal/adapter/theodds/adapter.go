package theodds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PropSync/internal/adapter"
	"PropSync/internal/config"
	"PropSync/internal/interfaces"
	"PropSync/internal/model"
	"PropSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Name 注册名
const Name = "theodds"

func init() {
	adapter.Register(Name, NewAdapter)
}

// StatusError 赔率源返回非 200
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s_http_%d", e.Op, e.Status)
}

// Temporary 429 与 5xx 视为可重试
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || (e.Status >= 500 && e.Status <= 599)
}

// Option 可选项
type Option func(*Adapter)

// WithSleeper 替换退避等待函数（测试用）
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Adapter) { a.sleep = fn }
}

// WithJitter 替换抖动函数，入参为上限（含）
func WithJitter(fn func(maxMs int) int) Option {
	return func(a *Adapter) { a.jitter = fn }
}

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

type Adapter struct {
	cfg        *config.OddsProviderConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func(maxMs int) int
}

// NewAdapter 工厂函数
func NewAdapter(cfg *config.OddsProviderConfig, logger *logrus.Logger) interfaces.OddsProvider {
	return New(cfg, logger)
}

func New(cfg *config.OddsProviderConfig, logger *logrus.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		cfg: cfg,
		httpClient: httpclient.NewHTTPClient(httpclient.Options{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Proxy:   cfg.Proxy,
		}, logger),
		logger: logger,
		sleep:  sleepCtx,
		jitter: func(maxMs int) int {
			if maxMs <= 0 {
				return 0
			}
			return rand.IntN(maxMs + 1)
		},
	}
	if cfg.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 3
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        Name,
		MaxRequests: uint32(threshold),
		Timeout:     time.Duration(cfg.BreakerTimeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		// 非可重试的 4xx 说明上游正常，不计入熔断
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && !se.Temporary())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"provider":  name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("赔率源熔断状态变化")
		},
	})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) GetName() string {
	return Name
}

// ListEvents 拉取赛事索引
func (a *Adapter) ListEvents(ctx context.Context) ([]model.ProviderEvent, error) {
	q := url.Values{}
	q.Set("dateFormat", "iso")
	q.Set("regions", a.cfg.Regions)
	body, err := a.get(ctx, "events_index", fmt.Sprintf("/sports/%s/events", a.cfg.Sport), q)
	if err != nil {
		return nil, err
	}
	return ParseEvents(body)
}

// FetchEventProps 拉取单场赛事的球员盘口
func (a *Adapter) FetchEventProps(ctx context.Context, eventID string, markets []string) (*model.ParsedProps, []byte, error) {
	q := url.Values{}
	q.Set("regions", a.cfg.Regions)
	q.Set("bookmakers", a.cfg.Bookmaker)
	q.Set("oddsFormat", "american")
	q.Set("markets", strings.Join(markets, ","))
	path := fmt.Sprintf("/sports/%s/events/%s/odds", a.cfg.Sport, url.PathEscape(eventID))
	body, err := a.get(ctx, "event_odds", path, q)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := ParseProps(body, a.cfg.Bookmaker, markets)
	if err != nil {
		return nil, body, err
	}
	if parsed.EventID == "" {
		parsed.EventID = eventID
	}
	return parsed, body, nil
}

// get 带熔断、限速、退避重试的 GET
func (a *Adapter) get(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	q.Set("apiKey", a.cfg.APIKey)
	u := strings.TrimRight(a.cfg.BaseURL, "/") + path + "?" + q.Encode()
	res, err := a.breaker.Execute(func() (interface{}, error) {
		return a.getWithRetry(ctx, op, u)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (a *Adapter) getWithRetry(ctx context.Context, op, u string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := a.getOnce(ctx, op, u)
		if err == nil {
			return body, nil
		}
		var se *StatusError
		if !errors.As(err, &se) || !se.Temporary() || attempt >= a.cfg.MaxRetries {
			return nil, err
		}
		delay := a.backoff(attempt)
		a.logger.WithFields(logrus.Fields{
			"op":      op,
			"status":  se.Status,
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Warn("赔率源请求失败，退避后重试")
		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// backoff min(max, base*2^attempt) + [0, jitter]
func (a *Adapter) backoff(attempt int) time.Duration {
	base := a.cfg.BaseDelayMs
	ms := a.cfg.MaxDelayMs
	if attempt < 30 && base<<attempt < ms {
		ms = base << attempt
	}
	return time.Duration(ms+a.jitter(a.cfg.MaxJitterMs)) * time.Millisecond
}

func (a *Adapter) getOnce(ctx context.Context, op, u string) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s请求失败: %w", op, err)
	}
	defer resp.Body.Close()

	// 记录额度，不记录带 apiKey 的 URL
	if remaining := resp.Header.Get("X-Requests-Remaining"); remaining != "" {
		a.logger.WithFields(logrus.Fields{
			"op":        op,
			"remaining": remaining,
			"used":      resp.Header.Get("X-Requests-Used"),
		}).Debug("赔率源额度")
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Op: op, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s读取响应失败: %w", op, err)
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

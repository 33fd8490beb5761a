package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"trade_executor/internal/metrics"
)

const tsLayout = "2006-01-02T15:04:05.000Z"

// envelope: общий ответ OKX: {"code":"0","msg":"","data":[...]}
type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

// sign: base64(HMAC-SHA256(secret, ts + METHOD + requestPath + body)).
func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + strings.ToUpper(method) + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// call отправляет запрос и разбирает конверт. Ошибка — только транспорт/HTTP/декодирование,
// бизнес-код (code/sCode) проверяет вызывающий.
func call[T any](
	ctx context.Context,
	c *Client,
	method, path string,
	query url.Values,
	body any,
	signed bool,
) (envelope[T], []byte, error) {
	var env envelope[T]

	if err := c.limiter.Wait(ctx); err != nil {
		return env, nil, err
	}

	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var payload []byte
	var rdr io.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		if err != nil {
			return env, nil, fmt.Errorf("okx %s marshal: %w", path, err)
		}
		payload = b
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rdr)
	if err != nil {
		return env, nil, fmt.Errorf("okx %s new request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		ts := c.now().UTC().Format(tsLayout)
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	}
	if c.testnet {
		req.Header.Set("x-simulated-trading", "1")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	metrics.RequestDuration.WithLabelValues(Name, path).Observe(time.Since(started).Seconds())
	if err != nil {
		return env, nil, fmt.Errorf("okx %s do: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	decodeErr := sonic.Unmarshal(data, &env)
	if resp.StatusCode/100 != 2 && (decodeErr != nil || env.Code == "") {
		return env, data, fmt.Errorf("okx %s http %d: %s", path, resp.StatusCode, string(data))
	}
	if decodeErr != nil {
		return env, data, fmt.Errorf("okx %s decode: %w; body=%s", path, decodeErr, string(data))
	}
	return env, data, nil
}

// fetch: call + проверка code == "0".
func fetch[T any](
	ctx context.Context,
	c *Client,
	method, path string,
	query url.Values,
	body any,
	signed bool,
) ([]T, error) {
	env, raw, err := call[T](ctx, c, method, path, query, body, signed)
	if err != nil {
		return nil, err
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("okx %s error: code=%s msg=%s RAW=%s", path, env.Code, env.Msg, string(raw))
	}
	return env.Data, nil
}

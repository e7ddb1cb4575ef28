// file: internals/features/enrollment/service/gateway_service.go
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/mail"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/misterVKLN/shopify-webhook/internals/configs"
	"github.com/misterVKLN/shopify-webhook/internals/metrics"
)

const bulkEnrollPath = "/api/bulk_enroll/v1/bulk_enroll"
const enrollmentPath = "/api/enrollment/v1/enrollment"

/* =========================================================
   Gateway bulk enrollment Open edX.
   - Satu request per kombinasi course/email (sengaja tidak batch,
     biar kegagalan granular per item).
   - Status >= 400 = error setelah dicatat lengkap; 5xx/network
     di-retry dengan backoff, 4xx tidak.
========================================================= */

type GatewayClient struct {
	HTTP       *http.Client
	BaseURL    string
	SendEmail  bool
	AutoEnroll bool

	MaxAttempts int
	Backoff     time.Duration
}

func NewGatewayClient(cfg configs.LMSSettings) *GatewayClient {
	cc := clientcredentials.Config{
		ClientID:     cfg.OAuth2Key,
		ClientSecret: cfg.OAuth2Secret,
		TokenURL:     cfg.RootURL + "/oauth2/access_token",
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = 10 * time.Second

	return &GatewayClient{
		HTTP:        httpClient,
		BaseURL:     cfg.RootURL,
		SendEmail:   cfg.SendEmail,
		AutoEnroll:  cfg.AutoEnroll,
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
	}
}

func (g *GatewayClient) Enroll(ctx context.Context, courseID, email, mode string) error {
	if err := g.bulkEnroll(ctx, "enroll", courseID, email); err != nil {
		metrics.EnrollmentCalls.WithLabelValues("enroll", "error").Inc()
		return err
	}
	metrics.EnrollmentCalls.WithLabelValues("enroll", "ok").Inc()

	// Mode dari variant_title Shopify (honor/verified/...) → update
	// enrollment yang baru dibikin. Kegagalan update mode tidak
	// membatalkan enrollment-nya.
	if mode != "" {
		if err := g.updateMode(ctx, courseID, email, mode); err != nil {
			log.Printf("[ERROR] gagal update mode %q untuk %s di %s: %v", mode, email, courseID, err)
		}
	}
	return nil
}

func (g *GatewayClient) Unenroll(ctx context.Context, courseID, email string) error {
	if err := g.bulkEnroll(ctx, "unenroll", courseID, email); err != nil {
		metrics.EnrollmentCalls.WithLabelValues("unenroll", "error").Inc()
		return err
	}
	metrics.EnrollmentCalls.WithLabelValues("unenroll", "ok").Inc()
	return nil
}

func (g *GatewayClient) bulkEnroll(ctx context.Context, action, courseID, email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("email %q tidak valid: %w", email, err)
	}

	params := map[string]interface{}{
		"auto_enroll":    g.AutoEnroll,
		"email_students": g.SendEmail,
		"action":         action,
		"courses":        courseID,
		"identifiers":    email,
	}
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	url := g.BaseURL + bulkEnrollPath
	resp, err := g.doWithRetry(ctx, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Selain 200 bisa dapat: 400 (request rusak), 401 (token kadaluarsa),
	// 403 (token bukan staff di course), 404 (course id tidak ada), 5xx.
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("[ERROR] POST %s params=%v balas HTTP %d: %s", url, params, resp.StatusCode, raw)
		return fmt.Errorf("bulk enroll %s %s: HTTP %d", action, courseID, resp.StatusCode)
	}
	return nil
}

func (g *GatewayClient) updateMode(ctx context.Context, courseID, email, mode string) error {
	body, err := json.Marshal(map[string]interface{}{
		"user":           email,
		"mode":           mode,
		"course_details": map[string]string{"course_id": courseID},
	})
	if err != nil {
		return err
	}
	resp, err := g.doWithRetry(ctx, g.BaseURL+enrollmentPath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("update mode: HTTP %d: %s", resp.StatusCode, raw)
	}
	return nil
}

// doWithRetry: POST JSON, retry terbatas dengan exponential backoff.
// Retry HANYA untuk network error / 5xx; 4xx langsung dikembalikan
// (client error tidak akan sembuh dengan diulang).
func (g *GatewayClient) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error
	backoff := g.Backoff
	for attempt := 1; attempt <= g.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.HTTP.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err != nil {
			lastErr = err
			log.Printf("[WARN] POST %s attempt %d gagal: %v", url, attempt, err)
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			log.Printf("[WARN] POST %s attempt %d balas %d", url, attempt, resp.StatusCode)
		}

		if attempt == g.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("POST %s habis %d attempt: %w", url, g.MaxAttempts, lastErr)
}

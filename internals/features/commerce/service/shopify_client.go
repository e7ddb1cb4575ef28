// file: internals/features/commerce/service/shopify_client.go
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/misterVKLN/shopify-webhook/internals/configs"
)

/* =========================================================
   Client Shopify Admin API (GraphQL).
   Dipakai HANYA di jalur cancellation: payload cancel cuma bawa
   customerId, jadi email + daftar SKU harus di-lookup.
========================================================= */

type ShopifyClient struct {
	HTTP        *http.Client
	APIURL      string
	AccessToken string

	PageSize    int
	MaxAttempts int
	Backoff     time.Duration
}

func NewShopifyClient(cfg configs.ShopifySettings) *ShopifyClient {
	return &ShopifyClient{
		// Paginated call tidak boleh muter selamanya di network yang
		// nge-hang — timeout per request wajib.
		HTTP:        &http.Client{Timeout: 10 * time.Second},
		APIURL:      cfg.AdminAPIURL,
		AccessToken: cfg.AdminAPIToken,
		PageSize:    250,
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
	}
}

const customerEmailQuery = `
query getCustomer($customerId: ID!) {
	customer(id: $customerId) {
		id
		email
	}
}`

const customerOrdersQuery = `
query getOrders($customerId: ID!, $cursor: String, $pageSize: Int!) {
	customer(id: $customerId) {
		orders(first: $pageSize, after: $cursor) {
			edges {
				node {
					id
					createdAt
					lineItems(first: 250) {
						edges {
							node {
								title
								quantity
								variant {
									sku
								}
							}
						}
					}
				}
			}
			pageInfo {
				hasNextPage
				endCursor
			}
		}
	}
}`

// CustomerEmail: single query. Non-200 → dicatat, email kosong dikembalikan
// TANPA error (kebijakan sama dengan kegagalan parse: caller yang memutuskan).
func (c *ShopifyClient) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	raw, status, err := c.doGraphQL(ctx, customerEmailQuery, map[string]interface{}{
		"customerId": customerID,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		log.Printf("[ERROR] lookup email customer gagal: HTTP %d: %s", status, raw)
		return "", nil
	}

	var out struct {
		Data struct {
			Customer *struct {
				Email string `json:"email"`
			} `json:"customer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("[ERROR] response email customer tidak kebaca: %v", err)
		return "", nil
	}
	if out.Data.Customer == nil {
		return "", nil
	}
	return out.Data.Customer.Email, nil
}

type ordersPage struct {
	Data struct {
		Customer *struct {
			Orders struct {
				Edges []struct {
					Node *struct {
						LineItems struct {
							Edges []struct {
								Node struct {
									Variant *struct {
										Sku string `json:"sku"`
									} `json:"variant"`
								} `json:"node"`
							} `json:"edges"`
						} `json:"lineItems"`
					} `json:"node"`
				} `json:"edges"`
				PageInfo struct {
					HasNextPage bool    `json:"hasNextPage"`
					EndCursor   *string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"orders"`
		} `json:"customer"`
	} `json:"data"`
}

// CustomerOrderSKUs: pagination cursor sampai habis. SKU dideduplikasi
// (customer bisa beli produk yang sama berkali-kali). Halaman yang gagal
// parse menghentikan loop tapi TIDAK membuang hasil halaman sebelumnya —
// best effort yang disengaja.
func (c *ShopifyClient) CustomerOrderSKUs(ctx context.Context, customerID string) ([]string, error) {
	seen := map[string]struct{}{}
	skus := []string{}
	var cursor *string

	for {
		raw, status, err := c.doGraphQL(ctx, customerOrdersQuery, map[string]interface{}{
			"customerId": customerID,
			"cursor":     cursor,
			"pageSize":   c.PageSize,
		})
		if err != nil {
			return skus, err
		}
		if status != http.StatusOK {
			log.Printf("[ERROR] lookup order customer gagal: HTTP %d: %s", status, raw)
			break
		}

		var page ordersPage
		if err := json.Unmarshal(raw, &page); err != nil || page.Data.Customer == nil {
			log.Printf("[ERROR] halaman order tidak kebaca (partial result dipakai): %v", err)
			break
		}

		for _, edge := range page.Data.Customer.Orders.Edges {
			if edge.Node == nil {
				continue
			}
			for _, li := range edge.Node.LineItems.Edges {
				if li.Node.Variant == nil || li.Node.Variant.Sku == "" {
					continue
				}
				if _, dup := seen[li.Node.Variant.Sku]; dup {
					continue
				}
				seen[li.Node.Variant.Sku] = struct{}{}
				skus = append(skus, li.Node.Variant.Sku)
			}
		}

		info := page.Data.Customer.Orders.PageInfo
		if !info.HasNextPage {
			break
		}
		cursor = info.EndCursor
	}

	return skus, nil
}

// doGraphQL: POST query+variables, retry terbatas dengan backoff untuk
// network error / 5xx. 4xx dikembalikan apa adanya ke caller.
func (c *ShopifyClient) doGraphQL(ctx context.Context, query string, vars map[string]interface{}) ([]byte, int, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return nil, 0, err
	}

	var lastErr error
	backoff := c.Backoff
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

		resp, err := c.HTTP.Do(req)
		if err == nil && resp.StatusCode < 500 {
			raw, rerr := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
			resp.Body.Close()
			if rerr != nil {
				return nil, resp.StatusCode, rerr
			}
			return raw, resp.StatusCode, nil
		}
		if err != nil {
			lastErr = err
			log.Printf("[WARN] GraphQL attempt %d gagal: %v", attempt, err)
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			log.Printf("[WARN] GraphQL attempt %d balas %d", attempt, resp.StatusCode)
		}

		if attempt == c.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	return nil, 0, fmt.Errorf("GraphQL habis %d attempt: %w", c.MaxAttempts, lastErr)
}

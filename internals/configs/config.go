package configs

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func GetEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

/* =========================================================
   Settings per integrasi — dipass eksplisit ke service,
   bukan global (secrets jangan nyangkut di package state).
========================================================= */

// ShopifySettings: identitas toko + secret buat verifikasi HMAC
// dan akses Admin API (lookup customer saat cancellation).
type ShopifySettings struct {
	ShopDomains   []string // allow-list X-Shopify-Shop-Domain
	APIKey        string   // shared secret untuk HMAC webhook
	AdminAPIURL   string   // endpoint GraphQL Admin API
	AdminAPIToken string   // X-Shopify-Access-Token
}

func (s ShopifySettings) DomainAllowed(domain string) bool {
	for _, d := range s.ShopDomains {
		if d != "" && d == domain {
			return true
		}
	}
	return false
}

func LoadShopifySettings() ShopifySettings {
	domains := []string{}
	if v := GetEnv("SHOPIFY_SHOP_DOMAINS"); v != "" {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				domains = append(domains, d)
			}
		}
	}
	// backward-compat: single domain env
	if v := GetEnv("SHOPIFY_SHOP_DOMAIN"); v != "" {
		domains = append(domains, strings.TrimSpace(v))
	}

	s := ShopifySettings{
		ShopDomains:   domains,
		APIKey:        GetEnv("SHOPIFY_WEBHOOK_API_KEY"),
		AdminAPIURL:   GetEnv("SHOPIFY_ADMIN_API_URL"),
		AdminAPIToken: GetEnv("SHOPIFY_ADMIN_API_ACCESS_TOKEN"),
	}
	if s.APIKey == "" {
		log.Println("❌ SHOPIFY_WEBHOOK_API_KEY belum diset!")
	}
	if len(s.ShopDomains) == 0 {
		log.Println("❌ SHOPIFY_SHOP_DOMAINS belum diset!")
	}
	return s
}

// LMSSettings: koneksi ke Open edX (bulk enrollment + course catalog).
type LMSSettings struct {
	RootURL      string
	OAuth2Key    string
	OAuth2Secret string
	SendEmail    bool // email_students di bulk enroll
	AutoEnroll   bool
}

func LoadLMSSettings() LMSSettings {
	s := LMSSettings{
		RootURL:      strings.TrimRight(GetEnv("LMS_ROOT_URL"), "/"),
		OAuth2Key:    GetEnv("WEBHOOK_RECEIVER_EDX_OAUTH2_KEY"),
		OAuth2Secret: GetEnv("WEBHOOK_RECEIVER_EDX_OAUTH2_SECRET"),
		SendEmail:    GetEnvBool("WEBHOOK_RECEIVER_SEND_ENROLLMENT_EMAIL", true),
		AutoEnroll:   GetEnvBool("WEBHOOK_RECEIVER_AUTO_ENROLL", true),
	}
	if s.RootURL == "" {
		log.Println("❌ LMS_ROOT_URL belum diset!")
	}
	if s.OAuth2Key == "" || s.OAuth2Secret == "" {
		log.Println("⚠️ OAuth2 key/secret LMS kosong, enrollment call bakal gagal")
	}
	return s
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testGateway(url string) *GatewayClient {
	// Struct literal, bukan NewGatewayClient — tidak ada server OAuth2 di test.
	return &GatewayClient{
		HTTP:        &http.Client{Timeout: 2 * time.Second},
		BaseURL:     url,
		SendEmail:   true,
		AutoEnroll:  true,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	}
}

type recordedRequest struct {
	path string
	body map[string]interface{}
}

func TestEnrollSendsBulkEnrollAndMode(t *testing.T) {
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		reqs = append(reqs, recordedRequest{r.URL.Path, body})
	}))
	defer srv.Close()

	g := testGateway(srv.URL)
	if err := g.Enroll(context.Background(), "course-v1:Org+A+Run", "a@x.com", "verified"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("request = %d, mau 2 (bulk enroll + update mode)", len(reqs))
	}
	if reqs[0].path != bulkEnrollPath {
		t.Fatalf("path pertama = %s", reqs[0].path)
	}
	if reqs[0].body["action"] != "enroll" ||
		reqs[0].body["courses"] != "course-v1:Org+A+Run" ||
		reqs[0].body["identifiers"] != "a@x.com" ||
		reqs[0].body["auto_enroll"] != true ||
		reqs[0].body["email_students"] != true {
		t.Fatalf("params bulk enroll salah: %v", reqs[0].body)
	}
	if reqs[1].path != enrollmentPath {
		t.Fatalf("path kedua = %s", reqs[1].path)
	}
	if reqs[1].body["mode"] != "verified" || reqs[1].body["user"] != "a@x.com" {
		t.Fatalf("params update mode salah: %v", reqs[1].body)
	}
}

func TestEnrollWithoutModeSkipsUpdate(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	if err := testGateway(srv.URL).Enroll(context.Background(), "course-v1:Org+A+Run", "a@x.com", ""); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("request = %d, mau 1", calls)
	}
}

func TestEnrollModeFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == enrollmentPath {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	// Enrollment-nya sendiri sukses; mode gagal cuma dicatat.
	if err := testGateway(srv.URL).Enroll(context.Background(), "course-v1:Org+A+Run", "a@x.com", "honor"); err != nil {
		t.Fatalf("kegagalan update mode tidak boleh membatalkan enroll: %v", err)
	}
}

func TestUnenroll(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	if err := testGateway(srv.URL).Unenroll(context.Background(), "course-v1:Org+A+Run", "a@x.com"); err != nil {
		t.Fatal(err)
	}
	if body["action"] != "unenroll" {
		t.Fatalf("action = %v", body["action"])
	}
}

func TestBulkEnrollRejectsBadEmail(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	if err := testGateway(srv.URL).Enroll(context.Background(), "course-v1:Org+A+Run", "bukan email", ""); err == nil {
		t.Fatal("email tidak valid harusnya ditolak sebelum HTTP")
	}
	if calls != 0 {
		t.Fatal("request tetap kekirim padahal email invalid")
	}
}

func TestBulkEnroll4xxFailsWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := testGateway(srv.URL).Enroll(context.Background(), "course-v1:Org+A+Run", "a@x.com", "")
	if err == nil {
		t.Fatal("403 harusnya error")
	}
	if calls != 1 {
		t.Fatalf("4xx ke-retry (%d call), mau 1", calls)
	}
}

func TestBulkEnroll5xxRetriedThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	if err := testGateway(srv.URL).Enroll(context.Background(), "course-v1:Org+A+Run", "a@x.com", ""); err != nil {
		t.Fatalf("5xx transien harusnya sembuh lewat retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("call = %d, mau 3", calls)
	}
}

func TestCourseExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/courses/v1/courses/course-v1:Org+A+Run":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := &CatalogClient{HTTP: srv.Client(), BaseURL: srv.URL}

	if err := c.CourseExists(context.Background(), "course-v1:Org+A+Run"); err != nil {
		t.Fatalf("course yang ada: %v", err)
	}
	err := c.CourseExists(context.Background(), "course-v1:Org+Gone+Run")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("harusnya ErrCourseNotFound, dapat %v", err)
	}
}

// file: internals/features/enrollment/service/course_catalog_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var ErrCourseNotFound = errors.New("course not found")

// CatalogClient konfirmasi course id beneran ada di LMS sebelum dipakai
// sebagai target enrollment. Share http.Client (OAuth2) dengan gateway.
type CatalogClient struct {
	HTTP    *http.Client
	BaseURL string
}

func NewCatalogClient(g *GatewayClient) *CatalogClient {
	return &CatalogClient{HTTP: g.HTTP, BaseURL: g.BaseURL}
}

func (c *CatalogClient) CourseExists(ctx context.Context, courseID string) error {
	u := c.BaseURL + "/api/courses/v1/courses/" + url.PathEscape(courseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	default:
		return fmt.Errorf("cek course %s: HTTP %d", courseID, resp.StatusCode)
	}
}

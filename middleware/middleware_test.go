package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tournament-registration/services"

	"github.com/gofiber/fiber/v2"
)

func adminApp(token string) *fiber.App {
	app := fiber.New()
	app.Get("/staff", AdminAuthMiddleware(token), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAdminAuthMiddleware(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		header   string
		expected int
	}{
		{"not configured", "", "Bearer anything", http.StatusServiceUnavailable},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"wrong token", "secret", "Bearer nope", http.StatusUnauthorized},
		{"bearer token", "secret", "Bearer secret", http.StatusOK},
		{"bare token", "secret", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/staff", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := adminApp(tc.token).Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, resp.StatusCode)
			}
		})
	}
}

func TestSessionContextMiddleware(t *testing.T) {
	codec := services.NewSessionCodec(false)
	app := fiber.New()
	app.Get("/", SessionContextMiddleware(codec), func(c *fiber.Ctx) error {
		su, err := SessionFrom(c)
		switch {
		case err != nil:
			return c.SendString("invalid")
		case su == nil:
			return c.SendString("anonymous")
		default:
			return c.SendString(su.Username)
		}
	})

	cases := []struct {
		cookie string
		want   string
	}{
		{"", "anonymous"},
		{services.SessionCookieName + "=garbage", "invalid"},
		{services.SessionCookieName + "=%7B%22osuid%22:42%2C%22username%22:%22foo%22%7D", "foo"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.cookie != "" {
			req.Header.Set("Cookie", tc.cookie)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		if got := string(buf[:n]); got != tc.want {
			t.Fatalf("cookie %q: expected %q, got %q", tc.cookie, tc.want, got)
		}
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(RequestIDHeader); got != "abc" {
		t.Fatalf("expected propagated id, got %q", got)
	}
}

package pprof

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "svcwatch/pkg/logx"
)

func TestTokenGuard(t *testing.T) {
	h := New(Config{Token: "s3cret"}, logx.Nop()).Handler()

	cases := []struct {
		name   string
		url    string
		header string
		want   int
	}{
		{"no token", "/debug/pprof/", "", http.StatusUnauthorized},
		{"wrong token", "/debug/pprof/?token=nope", "", http.StatusUnauthorized},
		{"query token", "/debug/pprof/?token=s3cret", "", http.StatusOK},
		{"bearer token", "/debug/pprof/", "Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("code = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRefusesPublicBindWithoutToken(t *testing.T) {
	err := New(Config{Addr: "0.0.0.0:0"}, logx.Nop()).Run(context.Background())
	if !errors.Is(err, ErrInsecureBind) {
		t.Fatalf("err = %v, want ErrInsecureBind", err)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:6060": true,
		"localhost:6060": true,
		"[::1]:6060":     true,
		":6060":          false,
		"10.0.0.5:6060":  false,
		"garbage":        false,
	} {
		if got := isLoopbackAddr(addr); got != want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}

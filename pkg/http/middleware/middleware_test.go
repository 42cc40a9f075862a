// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	beaconhttp "github.com/signalops/beacon/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMiddleware_WithExistingRequestId(t *testing.T) {
	app := fiber.New()
	app.Use(RequestMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		assert.Equal(t, "existing-request-id-12345", c.Get("X-Request-Id"))
		assert.Equal(t, "existing-request-id-12345", c.Locals(RequestIDKey))
		return c.SendString("ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "existing-request-id-12345")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "existing-request-id-12345", resp.Header.Get("X-Request-Id"))
}

func TestRequestMiddleware_GeneratesULID(t *testing.T) {
	ulidRegex := regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

	app := fiber.New()
	app.Use(RequestMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		requestId := resp.Header.Get("X-Request-Id")
		assert.Regexp(t, ulidRegex, requestId)
		_, err = ulid.ParseStrict(requestId)
		assert.NoError(t, err)
		assert.False(t, seen[requestId], "duplicate request id %s", requestId)
		seen[requestId] = true
	}
}

func TestExceptionMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ExceptionMiddleware)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("menu store exploded")
	})
	app.Get("/err", func(c *fiber.Ctx) error {
		panic(io.ErrUnexpectedEOF)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body beaconhttp.ResponseErr
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, beaconhttp.InternalError.Code, body.ErrCode)
	assert.Equal(t, "menu store exploded", body.ErrMsg)
	assert.Equal(t, "/boom", body.Path)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/err", nil))
	require.NoError(t, err)
	body = beaconhttp.ResponseErr{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, beaconhttp.InternalError.Msg, body.ErrMsg, "errors are not leaked")
}

func TestAccessLogMiddleware(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		app := fiber.New()
		app.Use(AccessLogMiddleware(&beaconhttp.Http{AccessLog: enabled}))
		app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
		app.Get("/menus", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusTeapot) })

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/menus?x=1", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	assert.True(t, excluded("/debug/pprof/heap", []string{"/debug/pprof/*"}))
	assert.True(t, excluded("/health", []string{"/health"}))
	assert.False(t, excluded("/healthz", []string{"/health"}))
}

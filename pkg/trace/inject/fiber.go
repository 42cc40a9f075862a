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

package inject

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const fiberTracerName = "github.com/signalops/beacon/pkg/trace/inject/fiber"

// FiberMiddleware starts a server span per request and stores the span
// context in c.UserContext() so handlers pass it down to service and store.
func FiberMiddleware() fiber.Handler {
	tracer := otel.Tracer(fiberTracerName)
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), &headerCarrier{c: c})

		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.SetUserContext(ctx)

		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", string(c.Request().URI().RequestURI())),
		)
		if requestID, ok := c.Locals("request_id").(string); ok && requestID != "" {
			span.SetAttributes(attribute.String("http.request.id", requestID))
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			span.SetAttributes(attribute.String("http.user_agent", ua))
		}

		err := c.Next()

		// the matched route is only known once routing ran
		span.SetName(c.Method() + " " + c.Route().Path)
		status := c.Response().StatusCode()
		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.status_code", status),
		)
		switch {
		case err != nil:
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		case status >= fiber.StatusInternalServerError:
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		default:
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}

// headerCarrier adapts fiber request headers to propagation.TextMapCarrier
type headerCarrier struct {
	c *fiber.Ctx
}

func (h *headerCarrier) Get(key string) string {
	return h.c.Get(key)
}

func (h *headerCarrier) Set(key, value string) {
	h.c.Request().Header.Set(key, value)
}

func (h *headerCarrier) Keys() []string {
	keys := make([]string, 0)
	h.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

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
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const redisTracerName = "github.com/signalops/beacon/pkg/trace/inject/redis"

// RedisHook implements redis.Hook and opens one client span per command or pipeline
type RedisHook struct {
	// WithArgs records the full command line, which may contain lock tokens
	WithArgs bool
	tracer   trace.Tracer
}

func NewRedisHook(withArgs bool) *RedisHook {
	return &RedisHook{WithArgs: withArgs, tracer: otel.Tracer(redisTracerName)}
}

func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis."+cmd.Name(), trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", cmd.Name()),
		)
		if h.WithArgs {
			span.SetAttributes(attribute.String("db.statement", cmd.String()))
		}

		err := next(ctx, cmd)
		finishRedisSpan(span, err)
		return err
	}
}

func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis.pipeline", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "pipeline"),
			attribute.StringSlice("db.redis.pipeline.commands", names),
		)

		err := next(ctx, cmds)
		status := err
		failed := 0
		for _, cmd := range cmds {
			if e := cmd.Err(); e != nil && !errors.Is(e, redis.Nil) {
				failed++
			}
		}
		if failed > 0 && status == nil {
			status = fmt.Errorf("%d pipeline commands failed", failed)
		}
		finishRedisSpan(span, status)
		return err
	}
}

func finishRedisSpan(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.Bool("db.redis.nil", true))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

// RegisterRedisHook adds the tracing hook to any client that supports hooks
func RegisterRedisHook(client redis.UniversalClient, withArgs bool) {
	client.AddHook(NewRedisHook(withArgs))
}

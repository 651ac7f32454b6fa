/*
Copyright 2026 The Shardgate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package trace contains a helper interface that allows various tracing
// tools to be plugged in to components using this interface. Spans are
// created through opentracing, so installing a global opentracing tracer
// (jaeger, datadog, ...) is enough to export them.
package trace

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Span represents a unit of work within a trace. After creating a Span with
// NewSpan(), call Finish() to mark the end of the work represented by it.
type Span interface {
	// Finish marks the span as complete.
	Finish()
	// Annotate records a key/value pair associated with a Span. It should be
	// called between NewSpan and Finish.
	Annotate(key string, value any)
	// RecordError marks the span as failed.
	RecordError(err error)
}

type openTracingSpan struct {
	otSpan opentracing.Span
}

func (s openTracingSpan) Finish() {
	s.otSpan.Finish()
}

func (s openTracingSpan) Annotate(key string, value any) {
	s.otSpan.SetTag(key, value)
}

func (s openTracingSpan) RecordError(err error) {
	if err == nil {
		return
	}
	ext.Error.Set(s.otSpan, true)
	s.otSpan.LogKV("error.message", err.Error())
}

// NewSpan starts a span named label as a child of the span carried by ctx,
// if any, using the global tracer. The returned context carries the new span.
func NewSpan(ctx context.Context, label string) (Span, context.Context) {
	otSpan, ctx := opentracing.StartSpanFromContext(ctx, label)
	return openTracingSpan{otSpan: otSpan}, ctx
}

// AnnotateSQL annotates a span with an SQL statement, truncated so that
// very large statements do not bloat the trace.
func AnnotateSQL(span Span, sql string) {
	const maxLen = 256
	if len(sql) > maxLen {
		sql = sql[:maxLen] + " [TRUNCATED]"
	}
	span.Annotate("sql", sql)
}

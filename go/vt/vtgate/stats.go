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

package vtgate

import (
	"github.com/shardgate/shardgate/go/stats"
)

// engineStats are the metrics exported by one Engine.
type engineStats struct {
	exporter *stats.Exporter

	queriesByPlan *stats.CountersWithSingleLabel
	queryTimings  *stats.Timings
	errorsByCode  *stats.CountersWithSingleLabel
	shardQueries  *stats.CountersWithMultiLabels
	shardActions  *stats.CountersWithMultiLabels
	transactions  *stats.CountersWithSingleLabel
	openSessions  *stats.Gauge
	metadataLoads *stats.CountersWithSingleLabel
}

func newEngineStats(namespace string) *engineStats {
	e := stats.NewExporter(namespace)
	return &engineStats{
		exporter:      e,
		queriesByPlan: e.NewCountersWithSingleLabel("QueriesByPlan", "statements executed by plan type", "plan"),
		queryTimings:  e.NewTimings("QueryTime", "statement execution time by plan type", "plan"),
		errorsByCode:  e.NewCountersWithSingleLabel("ErrorsByCode", "failed statements by error code", "code"),
		shardQueries:  e.NewCountersWithMultiLabels("ShardQueries", "statements sent to shards", []string{"shard", "operation"}),
		shardActions:  e.NewCountersWithMultiLabels("ShardActions", "transaction outcomes per shard", []string{"shard", "action"}),
		transactions:  e.NewCountersWithSingleLabel("Transactions", "transaction outcomes", "result"),
		openSessions:  e.NewGauge("OpenSessions", "open sessions"),
		metadataLoads: e.NewCountersWithSingleLabel("MetadataLoads", "table metadata loads by result", "result"),
	}
}

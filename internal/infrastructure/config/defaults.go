package config

import "time"

// defaults registers every key with viper. A key missing here is invisible
// to AutomaticEnv during Unmarshal, so keys without a real default are listed
// with their zero value.
var defaults = map[string]any{
	"app.name": "ledger",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "ledger",
	"database.sslmode":            "disable",
	"database.path":               "ledger.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"lock.enabled":       false,
	"lock.ttl":           10 * time.Second,
	"lock.retry_backoff": 50 * time.Millisecond,
	"lock.fail_fast":     false,

	"idempotency.retention":      7 * 24 * time.Hour,
	"idempotency.cleanup_every":  time.Hour,
	"idempotency.consumer_store": "memory",
	"idempotency.consumer_ttl":   72 * time.Hour,

	"ledger.currency":          "USD",
	"ledger.inventory_account": "1400",
	"ledger.grni_account":      "2150",
	"ledger.payable_account":   "2100",
	"ledger.payment_term_days": 30,

	"inventory.allow_negative_stock": false,
	"inventory.recalculate_inline":   false,

	"outbox.processor_enabled": false,
	"outbox.batch_size":        100,
	"outbox.poll_interval":     5 * time.Second,
	"outbox.max_attempts":      5,
	"outbox.cleanup_enabled":   false,
	"outbox.cleanup_retention": 7 * 24 * time.Hour,

	"pubsub.enabled":       false,
	"pubsub.project_id":    "",
	"pubsub.topic_id":      "ledger-events",
	"pubsub.emulator_host": "",
	"pubsub.push_token":    "",

	"jwt.enabled": false,
	"jwt.secret":  "",
	"jwt.issuer":  "ledger",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     time.Minute,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    int64(10 << 20),
	"http.retry_after":      time.Second,
	// no cross-origin requests until origins are configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Correlation-ID", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "ledger",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_url":           "",
}

// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomvideo_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// OAuthLogins counts OAuth callback outcomes per provider.
	OAuthLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomvideo_oauth_logins_total",
		Help: "OAuth login attempts by provider and outcome",
	}, []string{"provider", "outcome"})

	// VideosCreated counts videos published through the API.
	VideosCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomvideo_videos_created_total",
		Help: "Total number of videos created",
	})

	// EmailsSent counts delivered emails by template kind.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomvideo_emails_sent_total",
		Help: "Emails delivered by kind",
	}, []string{"kind"})

	// EmailsFailed counts failed email deliveries by template kind.
	EmailsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomvideo_emails_failed_total",
		Help: "Email delivery failures by kind",
	}, []string{"kind"})

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomvideo_notifications_created_total",
		Help: "Notifications created by type",
	}, []string{"type"})

	// WebSocketConnections is the number of live notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomvideo_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// WebSocketDrops counts frames dropped because a client's send buffer was full.
	WebSocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomvideo_websocket_dropped_messages_total",
		Help: "Notification frames dropped due to backpressure",
	})
)

package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofmen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ofmen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	likesToggled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofmen",
			Subsystem: "feed",
			Name:      "likes_toggled_total",
			Help:      "Like and unlike operations committed.",
		},
		[]string{"action"},
	)

	commentsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofmen",
			Subsystem: "comments",
			Name:      "writes_total",
			Help:      "Comment writes by action.",
		},
		[]string{"action"},
	)

	counterDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ofmen",
			Subsystem: "comments",
			Name:      "counter_update_failures_total",
			Help:      "Comment writes whose follow-up counter update failed.",
		},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofmen",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Media uploads by outcome.",
		},
		[]string{"outcome"},
	)

	followEdges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofmen",
			Subsystem: "social",
			Name:      "follow_edges_total",
			Help:      "Follow and unfollow operations committed.",
		},
		[]string{"action"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		likesToggled,
		commentsWritten,
		counterDrift,
		uploads,
		followEdges,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency by matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		path := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

func LikeToggled(like bool) {
	if like {
		likesToggled.WithLabelValues("like").Inc()
		return
	}
	likesToggled.WithLabelValues("unlike").Inc()
}

func CommentWritten(action string) {
	commentsWritten.WithLabelValues(action).Inc()
}

// CounterUpdateFailed counts a denormalized counter left behind its documents.
func CounterUpdateFailed() {
	counterDrift.Inc()
}

func Upload(outcome string) {
	uploads.WithLabelValues(outcome).Inc()
}

func FollowChanged(follow bool) {
	if follow {
		followEdges.WithLabelValues("follow").Inc()
		return
	}
	followEdges.WithLabelValues("unfollow").Inc()
}

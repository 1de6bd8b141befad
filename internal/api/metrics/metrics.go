// Package metrics defines the custom Prometheus metrics of the blog API. It is
// the single source of truth for metric names, labels and help strings.
//
// Metrics are registered on the registry passed to New, so tests and the
// server never share global collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blog"

// Login results.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Post operations.
const (
	PostCreated = "created"
	PostUpdated = "updated"
	PostDeleted = "deleted"
)

// Password reset stages.
const (
	ResetRequested = "requested"
	ResetCompleted = "completed"
	ResetRejected  = "rejected"
)

// Metrics holds every custom collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// UsersRegisteredTotal counts successful registrations.
	UsersRegisteredTotal prometheus.Counter

	// LoginsTotal counts login attempts.
	// Label:
	//   - result: "success" or "failure"
	LoginsTotal *prometheus.CounterVec

	// PostsTotal counts post mutations.
	// Label:
	//   - op: "created", "updated" or "deleted"
	PostsTotal *prometheus.CounterVec

	// PasswordResetsTotal counts reset flow steps.
	// Label:
	//   - stage: "requested", "completed" or "rejected" (invalid token)
	PasswordResetsTotal *prometheus.CounterVec

	// AvatarUploadsTotal counts accepted avatar uploads.
	AvatarUploadsTotal prometheus.Counter

	// RateLimitedTotal counts requests refused by the per-IP limiter.
	// Label:
	//   - path: the route pattern (e.g. "/login")
	RateLimitedTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersRegisteredTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Total number of user accounts created.",
		}),
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of login attempts, by result.",
		}, []string{"result"}),
		PostsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Total number of post mutations, by operation.",
		}, []string{"op"}),
		PasswordResetsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Total number of password reset steps, by stage.",
		}, []string{"stage"}),
		AvatarUploadsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "avatar_uploads_total",
			Help:      "Total number of avatar images accepted.",
		}),
		RateLimitedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter, by route.",
		}, []string{"path"}),
	}
}

func (m *Metrics) UserRegistered() {
	if m == nil {
		return
	}
	m.UsersRegisteredTotal.Inc()
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Post(op string) {
	if m == nil {
		return
	}
	m.PostsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) PasswordReset(stage string) {
	if m == nil {
		return
	}
	m.PasswordResetsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) AvatarUploaded() {
	if m == nil {
		return
	}
	m.AvatarUploadsTotal.Inc()
}

func (m *Metrics) RateLimited(path string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(path).Inc()
}

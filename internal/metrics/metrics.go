package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the service counters. A nil *Metrics records nothing, so
// collaborators can be built without a registry in tests.
type Metrics struct {
	otpIssued       *prometheus.CounterVec
	otpVerification *prometheus.CounterVec
	logins          *prometheus.CounterVec
	signups         *prometheus.CounterVec
	otpPurged       prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Panics if registration fails (prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		otpIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_otp_issued_total",
			Help: "OTP challenges issued, by purpose and delivery outcome",
		}, []string{"purpose", "delivered"}),
		otpVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_otp_verifications_total",
			Help: "OTP verification attempts, by purpose and result",
		}, []string{"purpose", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Password step of login, by result",
		}, []string{"result"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_signups_total",
			Help: "Self-registrations, by result",
		}, []string{"result"}),
		otpPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_otp_purged_total",
			Help: "Expired or used OTP records removed by the sweeper",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.otpIssued, m.otpVerification, m.logins, m.signups, m.otpPurged, m.requestDuration)
	return m
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

func (m *Metrics) OTPIssued(purpose string, delivered bool) {
	if m == nil {
		return
	}
	d := "false"
	if delivered {
		d = "true"
	}
	m.otpIssued.WithLabelValues(purpose, d).Inc()
}

func (m *Metrics) OTPVerified(purpose string, ok bool) {
	if m == nil {
		return
	}
	m.otpVerification.WithLabelValues(purpose, result(ok)).Inc()
}

func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) Signup(ok bool) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) OTPPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.otpPurged.Add(float64(n))
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

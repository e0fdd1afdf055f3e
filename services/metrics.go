package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournament_login_total",
		Help: "OAuth callback outcomes by result.",
	}, []string{"result"})

	osuRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tournament_osu_request_duration_seconds",
		Help:    "Latency of osu! API calls by operation and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})

	userUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournament_user_upserts_total",
		Help: "Login upserts split into created and updated users.",
	}, []string{"kind"})
)

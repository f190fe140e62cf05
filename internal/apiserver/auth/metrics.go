package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 认证指标：按结果计数
var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meals_admin",
			Name:      "logins_total",
			Help:      "Total login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// rotated = 连 refresh token 一起换发；renewed = 只换发 access token
	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meals_admin",
			Name:      "token_refreshes_total",
			Help:      "Total token refreshes by outcome",
		},
		[]string{"outcome"},
	)
)

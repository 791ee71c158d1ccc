package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CaptureSessionsOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partner_console_capture_sessions_opened_total",
		Help: "Capture sessions opened, by delivery phase.",
	},
		[]string{"phase"},
	)

	CaptureSessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partner_console_capture_sessions_expired_total",
		Help: "Capture sessions closed by the scheduler after sitting idle.",
	})

	PhotosCapturedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partner_console_photos_captured_total",
		Help: "Stills stored in a capture slot, by step key.",
	},
		[]string{"step"},
	)

	CameraAccessErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partner_console_camera_access_errors_total",
		Help: "Times the camera could not be opened.",
	})

	FinalizeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partner_console_finalize_total",
		Help: "Finalize attempts by phase and resulting stage.",
	},
		[]string{"phase", "stage"},
	)

	UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "partner_console_upload_duration_seconds",
		Help:    "Time spent uploading one batch of delivery photos.",
		Buckets: prometheus.DefBuckets,
	})

	BookingActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partner_console_booking_actions_total",
		Help: "Booking mutations requested by partners, by action and outcome.",
	},
		[]string{"action", "outcome"},
	)

	DashboardSnapshots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partner_console_dashboard_snapshots",
		Help: "Current number of cached dashboard snapshots.",
	})
)

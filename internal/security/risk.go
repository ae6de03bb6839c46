package security

import (
	"context"
	"strings"
	"time"

	"github.com/voicereach/voicereach/pkg/logging"
)

// Signal weights. Factors are additive and the total is capped at 100.
const (
	scoreDisposableEmail = 40
	scoreFreeEmail       = 5
	scoreDeviceReuse     = 30
	scoreIPVelocity      = 20
	scoreNoPhone         = 10
	scoreSuspiciousUA    = 15
	scoreVPN             = 25
)

// Action thresholds over the total score.
const (
	thresholdAllow        = 20 // 0-20: normal signup
	thresholdRequirePhone = 40 // 21-40: require phone verification
	thresholdManualReview = 60 // 41-60: require phone + manual review
	// 61+: block
)

const ipVelocityWindow = time.Hour

// Action is the recommended handling for a signup attempt.
type Action string

const (
	ActionAllow        Action = "allow"
	ActionRequirePhone Action = "require_phone"
	ActionManualReview Action = "manual_review"
	ActionBlock        Action = "block"
)

// SignupData carries the signals collected during signup.
type SignupData struct {
	Email         string
	IP            string
	Fingerprint   string
	Phone         string
	PhoneVerified bool
	UserAgent     string
	Referrer      string
	VPNDetected   bool
}

// RiskFactors breaks the total score down by signal.
type RiskFactors struct {
	DisposableEmail int `json:"disposable_email"`
	FreeEmail       int `json:"free_email"`
	DeviceReuse     int `json:"device_reuse"`
	IPVelocity      int `json:"ip_velocity"`
	NoPhone         int `json:"no_phone"`
	SuspiciousUA    int `json:"suspicious_ua"`
	VPNDetected     int `json:"vpn_detected"`
}

// Total sums the factors, capped at 100.
func (f RiskFactors) Total() int {
	total := f.DisposableEmail + f.FreeEmail + f.DeviceReuse + f.IPVelocity +
		f.NoPhone + f.SuspiciousUA + f.VPNDetected
	if total > 100 {
		return 100
	}
	return total
}

// Decision is the outcome of scoring one signup attempt. Degraded reports
// that one or more counting signals were unavailable and the score was
// computed without them, so callers can see fail-open behavior instead of
// mistaking it for a clean low score.
type Decision struct {
	Score    int         `json:"score"`
	Action   Action      `json:"action"`
	Factors  RiskFactors `json:"factors"`
	Degraded bool        `json:"degraded"`
}

// AccountCounter supplies the account-history counts the scorer needs.
// Implementations are expected to be backed by whatever user storage the
// caller runs; the scorer never touches storage directly.
type AccountCounter interface {
	// CountByFingerprint returns how many accounts share a device fingerprint.
	CountByFingerprint(ctx context.Context, fingerprint string) (int, error)
	// CountRecentByIP returns how many accounts signed up from the IP within
	// the window.
	CountRecentByIP(ctx context.Context, ip string, window time.Duration) (int, error)
}

// RiskScorer scores signup attempts for fraud risk.
type RiskScorer struct {
	counter AccountCounter
	logger  *logging.Logger
}

// NewRiskScorer creates a scorer. counter may be nil, in which case the
// device-reuse and IP-velocity signals are skipped and every decision is
// marked degraded.
func NewRiskScorer(counter AccountCounter, logger *logging.Logger) *RiskScorer {
	if logger == nil {
		logger = logging.Default()
	}
	return &RiskScorer{counter: counter, logger: logger}
}

// Score evaluates one signup attempt. Counter failures never fail the
// signup: the affected signal contributes zero and the decision is marked
// degraded.
func (s *RiskScorer) Score(ctx context.Context, data SignupData) Decision {
	var d Decision

	if IsDisposableEmail(data.Email) {
		d.Factors.DisposableEmail = scoreDisposableEmail
	} else if IsFreeEmail(data.Email) {
		d.Factors.FreeEmail = scoreFreeEmail
	}

	if data.Fingerprint != "" {
		if s.counter == nil {
			d.Degraded = true
		} else if n, err := s.counter.CountByFingerprint(ctx, data.Fingerprint); err != nil {
			s.logger.Warn("fingerprint count unavailable, scoring without it", "error", err)
			d.Degraded = true
		} else if n >= 2 {
			d.Factors.DeviceReuse = scoreDeviceReuse
		}
	}

	if data.IP != "" {
		if s.counter == nil {
			d.Degraded = true
		} else if n, err := s.counter.CountRecentByIP(ctx, data.IP, ipVelocityWindow); err != nil {
			s.logger.Warn("ip velocity count unavailable, scoring without it", "error", err)
			d.Degraded = true
		} else if n >= 3 {
			d.Factors.IPVelocity = scoreIPVelocity
		}
	}

	if !data.PhoneVerified {
		d.Factors.NoPhone = scoreNoPhone
	}
	if data.UserAgent != "" && isSuspiciousUserAgent(data.UserAgent) {
		d.Factors.SuspiciousUA = scoreSuspiciousUA
	}
	if data.VPNDetected {
		d.Factors.VPNDetected = scoreVPN
	}

	d.Score = d.Factors.Total()
	d.Action = actionFor(d.Score)
	return d
}

func actionFor(score int) Action {
	switch {
	case score <= thresholdAllow:
		return ActionAllow
	case score <= thresholdRequirePhone:
		return ActionRequirePhone
	case score <= thresholdManualReview:
		return ActionManualReview
	default:
		return ActionBlock
	}
}

var suspiciousUAPatterns = []string{
	"bot", "crawler", "spider", "scrape", "headless", "phantom",
	"selenium", "puppeteer", "playwright", "curl", "wget",
	"python-requests", "httpx", "axios",
}

func isSuspiciousUserAgent(ua string) bool {
	lower := strings.ToLower(ua)
	for _, pattern := range suspiciousUAPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

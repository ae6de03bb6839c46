package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeCounter struct {
	fingerprintCount int
	ipCount          int
	err              error
}

func (f *fakeCounter) CountByFingerprint(_ context.Context, _ string) (int, error) {
	return f.fingerprintCount, f.err
}

func (f *fakeCounter) CountRecentByIP(_ context.Context, _ string, _ time.Duration) (int, error) {
	return f.ipCount, f.err
}

func TestScore_CleanSignup(t *testing.T) {
	scorer := NewRiskScorer(&fakeCounter{}, nil)

	d := scorer.Score(context.Background(), SignupData{
		Email:         "jane@acme-corp.com",
		IP:            "203.0.113.10",
		Fingerprint:   "fp-1",
		PhoneVerified: true,
		UserAgent:     "Mozilla/5.0 (Macintosh)",
	})

	assert.Equal(t, 0, d.Score)
	assert.Equal(t, ActionAllow, d.Action)
	assert.False(t, d.Degraded)
}

func TestScore_DisposableEmailOutweighsFree(t *testing.T) {
	scorer := NewRiskScorer(&fakeCounter{}, nil)

	d := scorer.Score(context.Background(), SignupData{
		Email:         "x@mailinator.com",
		PhoneVerified: true,
	})

	assert.Equal(t, scoreDisposableEmail, d.Factors.DisposableEmail)
	assert.Equal(t, 0, d.Factors.FreeEmail)
	assert.Equal(t, ActionRequirePhone, d.Action)
}

func TestScore_FreeEmailOnlyWhenNotDisposable(t *testing.T) {
	scorer := NewRiskScorer(&fakeCounter{}, nil)

	d := scorer.Score(context.Background(), SignupData{
		Email:         "jane@gmail.com",
		PhoneVerified: true,
	})

	assert.Equal(t, scoreFreeEmail, d.Factors.FreeEmail)
	assert.Equal(t, ActionAllow, d.Action)
}

func TestScore_ActionThresholds(t *testing.T) {
	tests := []struct {
		name   string
		data   SignupData
		counts fakeCounter
		action Action
	}{
		{
			name:   "no phone only stays allowed",
			data:   SignupData{Email: "jane@acme-corp.com"},
			action: ActionAllow,
		},
		{
			name:   "device reuse requires phone",
			data:   SignupData{Email: "jane@acme-corp.com", Fingerprint: "fp-1", PhoneVerified: true},
			counts: fakeCounter{fingerprintCount: 2},
			action: ActionRequirePhone,
		},
		{
			name:   "stacked signals reach manual review",
			data:   SignupData{Email: "jane@gmail.com", Fingerprint: "fp-1", IP: "203.0.113.10"},
			counts: fakeCounter{fingerprintCount: 2, ipCount: 1},
			action: ActionManualReview,
		},
		{
			name: "bot with disposable email is blocked",
			data: SignupData{
				Email:     "x@mailinator.com",
				UserAgent: "python-requests/2.31",
				IP:        "203.0.113.10",
			},
			counts: fakeCounter{ipCount: 5},
			action: ActionBlock,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewRiskScorer(&tt.counts, nil)
			d := scorer.Score(context.Background(), tt.data)
			assert.Equal(t, tt.action, d.Action)
		})
	}
}

func TestScore_TotalCappedAt100(t *testing.T) {
	f := RiskFactors{
		DisposableEmail: scoreDisposableEmail,
		DeviceReuse:     scoreDeviceReuse,
		IPVelocity:      scoreIPVelocity,
		NoPhone:         scoreNoPhone,
		SuspiciousUA:    scoreSuspiciousUA,
		VPNDetected:     scoreVPN,
	}
	assert.Equal(t, 100, f.Total())
}

func TestScore_CounterFailureDegradesInsteadOfFailing(t *testing.T) {
	scorer := NewRiskScorer(&fakeCounter{err: errors.New("db down")}, nil)

	d := scorer.Score(context.Background(), SignupData{
		Email:         "jane@acme-corp.com",
		IP:            "203.0.113.10",
		Fingerprint:   "fp-1",
		PhoneVerified: true,
	})

	assert.True(t, d.Degraded)
	assert.Equal(t, 0, d.Factors.DeviceReuse)
	assert.Equal(t, 0, d.Factors.IPVelocity)
	assert.Equal(t, ActionAllow, d.Action)
}

func TestScore_NilCounterDegrades(t *testing.T) {
	scorer := NewRiskScorer(nil, nil)

	d := scorer.Score(context.Background(), SignupData{
		Email:       "jane@acme-corp.com",
		Fingerprint: "fp-1",
	})

	assert.True(t, d.Degraded)
}

func TestScore_SuspiciousUserAgents(t *testing.T) {
	assert.True(t, isSuspiciousUserAgent("HeadlessChrome/120.0"))
	assert.True(t, isSuspiciousUserAgent("curl/8.4.0"))
	assert.True(t, isSuspiciousUserAgent("Googlebot/2.1"))
	assert.False(t, isSuspiciousUserAgent("Mozilla/5.0 (Windows NT 10.0)"))
}

func TestValidateEmailDomain(t *testing.T) {
	ok, _ := ValidateEmailDomain("jane@acme-corp.com")
	assert.True(t, ok)

	ok, msg := ValidateEmailDomain("x@yopmail.com")
	assert.False(t, ok)
	assert.Contains(t, msg, "Disposable")

	ok, msg = ValidateEmailDomain("test@acme-corp.com")
	assert.False(t, ok)
	assert.Contains(t, msg, "invalid")
}

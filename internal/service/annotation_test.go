package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rtr-ops/backend/internal/models"
)

func TestEvaluateAnnotation(t *testing.T) {
	tests := []struct {
		name     string
		current  *string
		location string
		days     *int
		want     *string
		rule     string
		changed  bool
	}{
		{"expiring soon sets extension", nil, "", ptr(3), ptr(AnnotationExtension), RuleExpiringSoon, true},
		{"comfortable margin resets to layout", ptr(AnnotationExtension), "", ptr(30), ptr(AnnotationLayout), RuleComfortableMargin, true},
		{"expired with empty annotation", ptr(""), "", ptr(-5), ptr(AnnotationExtension), RuleAlreadyExpired, true},
		{"protected state untouched", ptr("on progress"), "", ptr(30), ptr("on progress"), RuleProtected, false},
		{"expires today", nil, "", ptr(0), ptr(AnnotationExtension), RuleExpiringSoon, true},
		{"last day of window", ptr(""), "", ptr(7), ptr(AnnotationExtension), RuleExpiringSoon, true},
		{"terminal guard", ptr("TK - Completed 03/01"), "", ptr(-2), ptr("TK - Completed 03/01"), RuleTerminal, false},
		{"on hold off", ptr("TK - ON HOLD OFF"), "", ptr(-40), ptr("TK - ON HOLD OFF"), RuleProtected, false},
		{"private property", nil, "Rear lot, PRIVATE PROPERTY", ptr(-1), nil, RulePrivateProperty, false},
		{"no expiry date", nil, "", nil, nil, RuleNoExpiry, false},
		{"other text near expiry", ptr("layout"), "", ptr(3), ptr("layout"), RuleNone, false},
		{"already requested while expired", ptr("Needs Permit Extension"), "", ptr(-3), ptr("Needs Permit Extension"), RuleNone, false},
		{"extension text kept inside window", ptr(AnnotationExtension), "", ptr(2), ptr(AnnotationExtension), RuleExpiringSoon, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateAnnotation(AnnotationInput{Current: tc.current, Location: tc.location, DaysUntilExpiry: tc.days})
			require.Equal(t, tc.rule, got.Rule)
			require.Equal(t, tc.changed, got.Changed)
			require.Equal(t, tc.want, got.Next)
		})
	}
}

func TestEvaluateAnnotationIsIdempotent(t *testing.T) {
	starts := []*string{nil, ptr(""), ptr(AnnotationExtension), ptr(AnnotationLayout), ptr("on schedule")}
	for days := -10; days <= 30; days++ {
		for _, start := range starts {
			d := days
			first := EvaluateAnnotation(AnnotationInput{Current: start, DaysUntilExpiry: &d})
			second := EvaluateAnnotation(AnnotationInput{Current: first.Next, DaysUntilExpiry: &d})
			require.False(t, second.Changed, "days=%d start=%v toggled on second pass", days, start)
			require.Equal(t, first.Next, second.Next)
		}
	}
}

func TestEvaluateAnnotationCustomWindow(t *testing.T) {
	got := EvaluateAnnotation(AnnotationInput{DaysUntilExpiry: ptr(10), Window: 14})
	require.Equal(t, RuleExpiringSoon, got.Rule)
	require.Equal(t, AnnotationExtension, *got.Next)
}

func TestDeriveStatus(t *testing.T) {
	asOf := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	require.Equal(t, models.PermitPending, DeriveStatus(nil, asOf, time.UTC))
	require.Equal(t, models.PermitExpired, DeriveStatus(ptr(day(-1)), asOf, time.UTC))
	require.Equal(t, models.PermitExpiresToday, DeriveStatus(ptr(day(0)), asOf, time.UTC))
	require.Equal(t, models.PermitActive, DeriveStatus(ptr(day(1)), asOf, time.UTC))
}

func TestDeriveStatusUsesLocalDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 02:00 UTC on the 10th is still the 9th in EST.
	asOf := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	require.Equal(t, models.PermitExpiresToday, DeriveStatus(ptr(day(-1)), asOf, est))
	require.Equal(t, models.PermitExpired, DeriveStatus(ptr(day(-1)), asOf, time.UTC))

	days := DaysUntilExpiry(ptr(day(5)), asOf, est)
	require.NotNil(t, days)
	require.Equal(t, 6, *days)
}

package service

import (
	"strings"
	"time"

	"github.com/rtr-ops/backend/internal/models"
)

const (
	AnnotationExtension = "needs permit extension"
	AnnotationLayout    = "layout"

	DefaultExpiryWindowDays = 7
)

// Rule names reported with every annotation decision.
const (
	RuleTerminal          = "terminal_guard"
	RuleProtected         = "protected_state"
	RulePrivateProperty   = "private_property"
	RuleNoExpiry          = "no_expiry"
	RuleExpiringSoon      = "expiring_soon"
	RuleComfortableMargin = "comfortable_margin"
	RuleAlreadyExpired    = "already_expired"
	RuleNone              = "no_rule"
)

var protectedAnnotations = []string{"on hold off", "on progress", "on schedule", "cancelled"}

// DeriveStatus is a pure function of the expiry date and the as-of day.
func DeriveStatus(expire *time.Time, asOf time.Time, loc *time.Location) models.PermitStatus {
	days := DaysUntilExpiry(expire, asOf, loc)
	switch {
	case days == nil:
		return models.PermitPending
	case *days < 0:
		return models.PermitExpired
	case *days == 0:
		return models.PermitExpiresToday
	default:
		return models.PermitActive
	}
}

// DaysUntilExpiry counts whole calendar days from the as-of day (in loc) to
// the expiry date. Expiry dates are calendar dates stored at UTC midnight.
func DaysUntilExpiry(expire *time.Time, asOf time.Time, loc *time.Location) *int {
	if expire == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	e := expire.UTC()
	today := asOf.In(loc)
	end := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	return &days
}

type AnnotationInput struct {
	Current         *string
	Location        string
	DaysUntilExpiry *int
	Window          int
}

type AnnotationDecision struct {
	Rule    string  `json:"rule"`
	Next    *string `json:"next"`
	Changed bool    `json:"changed"`
}

type verdict int

const (
	pass verdict = iota
	hold
	set
)

type annotationRule struct {
	name  string
	apply func(in AnnotationInput) (verdict, string)
}

// annotationRules run in order; the first rule that holds or sets decides.
var annotationRules = []annotationRule{
	{RuleTerminal, func(in AnnotationInput) (verdict, string) {
		if strings.Contains(lowered(in.Current), "tk - completed") {
			return hold, ""
		}
		return pass, ""
	}},
	{RuleProtected, func(in AnnotationInput) (verdict, string) {
		cur := lowered(in.Current)
		for _, p := range protectedAnnotations {
			if strings.Contains(cur, p) {
				return hold, ""
			}
		}
		return pass, ""
	}},
	{RulePrivateProperty, func(in AnnotationInput) (verdict, string) {
		if strings.Contains(strings.ToLower(in.Location), "private property") {
			return hold, ""
		}
		return pass, ""
	}},
	{RuleNoExpiry, func(in AnnotationInput) (verdict, string) {
		if in.DaysUntilExpiry == nil {
			return hold, ""
		}
		return pass, ""
	}},
	{RuleExpiringSoon, func(in AnnotationInput) (verdict, string) {
		d := *in.DaysUntilExpiry
		if d >= 0 && d <= in.Window && (lowered(in.Current) == "" || isExtension(in.Current)) {
			return set, AnnotationExtension
		}
		return pass, ""
	}},
	{RuleComfortableMargin, func(in AnnotationInput) (verdict, string) {
		if *in.DaysUntilExpiry > in.Window && isExtension(in.Current) {
			return set, AnnotationLayout
		}
		return pass, ""
	}},
	{RuleAlreadyExpired, func(in AnnotationInput) (verdict, string) {
		if *in.DaysUntilExpiry < 0 && !isExtension(in.Current) {
			return set, AnnotationExtension
		}
		return pass, ""
	}},
}

// EvaluateAnnotation applies the guard and rewrite rules to a ticket's
// comment_7d. Applying the result again is always a no-op.
func EvaluateAnnotation(in AnnotationInput) AnnotationDecision {
	if in.Window <= 0 {
		in.Window = DefaultExpiryWindowDays
	}
	for _, rule := range annotationRules {
		v, next := rule.apply(in)
		switch v {
		case hold:
			return AnnotationDecision{Rule: rule.name, Next: in.Current}
		case set:
			changed := in.Current == nil || *in.Current != next
			return AnnotationDecision{Rule: rule.name, Next: &next, Changed: changed}
		}
	}
	return AnnotationDecision{Rule: RuleNone, Next: in.Current}
}

func lowered(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

func isExtension(s *string) bool {
	return lowered(s) == AnnotationExtension
}

package service

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
)

// OfferCooldown is how long an offer type stays ineligible after being
// shown.
const OfferCooldown = 90 * 24 * time.Hour

// RetentionService selects a retention offer for a churn reason, honoring
// per-type cooldowns. Like the nutrient engine it is a static lookup table
// followed by a filter stage.
type RetentionService struct {
	logger *logrus.Logger

	// defaults maps a churn reason category to its preferred offer type.
	// Unknown categories fall back to "other".
	defaults map[string]string

	// catalog holds one offer per type, in fixed fallback-scan order, so
	// the cooldown fallback is bounded and deterministic.
	catalog []domain.Offer
}

// NewRetentionService creates a new retention service
func NewRetentionService(logger *logrus.Logger) *RetentionService {
	return &RetentionService{
		logger: logger,
		defaults: map[string]string{
			"price":            "discount",
			"not_using":        "pause",
			"missing_features": "concierge",
			"switching":        "free_month",
			"other":            "discount",
		},
		catalog: []domain.Offer{
			{Type: "discount", Title: "30% off for 3 months", Description: "Stay with us at 30% off your plan for the next three months."},
			{Type: "pause", Title: "Pause your membership", Description: "Take a break for up to 3 months and keep your data and streaks."},
			{Type: "free_month", Title: "One month free", Description: "Your next month is on us."},
			{Type: "concierge", Title: "Roadmap call", Description: "A 1:1 call with our team about the features you're missing."},
		},
	}
}

// SelectOffer picks the offer for a churn reason category. If the default
// offer type was shown within the cooldown window, the catalog is scanned
// in fixed order for a type not in cooldown. Returns nil when every type is
// cooling down — the scan is bounded by the catalog, never a loop over
// history.
func (s *RetentionService) SelectOffer(reasonCategory string, previousOffers []domain.OfferRecord, now time.Time) *domain.Offer {
	offerType, ok := s.defaults[strings.ToLower(strings.TrimSpace(reasonCategory))]
	if !ok {
		offerType = s.defaults["other"]
	}

	if !s.inCooldown(offerType, previousOffers, now) {
		return s.offerByType(offerType)
	}

	for _, offer := range s.catalog {
		if offer.Type == offerType {
			continue
		}
		if !s.inCooldown(offer.Type, previousOffers, now) {
			s.logger.WithFields(logrus.Fields{
				"reason":   reasonCategory,
				"wanted":   offerType,
				"fallback": offer.Type,
			}).Debug("Default offer type in cooldown, using fallback")
			o := offer
			return &o
		}
	}

	s.logger.WithField("reason", reasonCategory).Debug("All offer types in cooldown")
	return nil
}

// inCooldown reports whether an offer of the given type was shown within
// the cooldown window.
func (s *RetentionService) inCooldown(offerType string, previous []domain.OfferRecord, now time.Time) bool {
	for _, record := range previous {
		if record.Type == offerType && now.Sub(record.ShownAt) < OfferCooldown {
			return true
		}
	}
	return false
}

func (s *RetentionService) offerByType(offerType string) *domain.Offer {
	for _, offer := range s.catalog {
		if offer.Type == offerType {
			o := offer
			return &o
		}
	}
	return nil
}

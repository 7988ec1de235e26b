// Package services wires the insights engine to the outbound side
// effects that hang off an analysis run.
package services

import (
	"context"
	"sync"
	"time"

	"homebudget/internal/amqp"
	"homebudget/internal/core"
	"homebudget/internal/insights"
	"homebudget/internal/log"
)

// DigestPublisher pushes alert digests onto the message queue.
type DigestPublisher interface {
	PublishAlertDigest(ctx context.Context, msg *amqp.AlertDigestMessage) error
}

// AnalysisService runs analyses and forwards Critical and Urgent findings
// to the digest queue. Publishing is best-effort and asynchronous: a
// broker outage never delays or fails the analysis response.
type AnalysisService struct {
	engine    *insights.Engine
	publisher DigestPublisher
	logger    *log.Logger

	// Digest throttling: at most one digest per interval, capped at
	// maxAlerts entries.
	interval  time.Duration
	maxAlerts int

	mu          sync.Mutex
	lastPublish time.Time
}

func NewAnalysisService(engine *insights.Engine, publisher DigestPublisher, logger *log.Logger, interval time.Duration, maxAlerts int) *AnalysisService {
	return &AnalysisService{
		engine:    engine,
		publisher: publisher,
		logger:    logger.WithComponent("analysis-service"),
		interval:  interval,
		maxAlerts: maxAlerts,
	}
}

func (s *AnalysisService) Analyze(ctx context.Context, now time.Time) (*insights.Analysis, error) {
	analysis, err := s.engine.Analyze(ctx, now)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if alerts := s.digestAlerts(analysis.Recommendations); len(alerts) > 0 && s.claimPublishSlot(now) {
			score, scoreErr := s.engine.HealthScore(ctx, now)
			if scoreErr != nil {
				s.logger.WarnContext(ctx, "Health score unavailable for digest", "error", scoreErr)
			}
			go s.publishDigest(analysis, alerts, score, now)
		}
	}
	return analysis, nil
}

// digestAlerts filters recommendations down to the Critical and Urgent
// findings worth a queue message, capped at maxAlerts.
func (s *AnalysisService) digestAlerts(recs []core.Recommendation) []amqp.DigestAlert {
	var alerts []amqp.DigestAlert
	for _, rec := range recs {
		if rec.Priority != core.PriorityCritical && rec.Priority != core.PriorityUrgent {
			continue
		}
		if s.maxAlerts > 0 && len(alerts) == s.maxAlerts {
			break
		}
		alerts = append(alerts, amqp.DigestAlert{
			Title:          rec.Title,
			Priority:       string(rec.Priority),
			Timeline:       rec.Timeline,
			ImpactEstimate: rec.ImpactEstimate,
		})
	}
	return alerts
}

// claimPublishSlot rate-limits digests; repeated analyses within the
// interval would produce near-identical rows in the export sheet. Callers
// claim a slot only when they hold a non-empty digest, so an alert-free
// analysis never blocks the next one that has findings.
func (s *AnalysisService) claimPublishSlot(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval > 0 && now.Sub(s.lastPublish) < s.interval {
		return false
	}
	s.lastPublish = now
	return true
}

func (s *AnalysisService) publishDigest(analysis *insights.Analysis, alerts []amqp.DigestAlert, score int, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := &amqp.AlertDigestMessage{
		GeneratedAt:   now,
		HealthScore:   score,
		TotalIncome:   analysis.TotalIncome,
		TotalExpenses: analysis.TotalExpenses,
		Alerts:        alerts,
	}
	if err := s.publisher.PublishAlertDigest(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish alert digest, continuing", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "Alert digest queued", "alerts", len(alerts))
}

// Package notify delivers shortlist emails to the top-ranked candidates.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/candidates"
	"github.com/spigell/cv-ranker/internal/logger"
)

// Failure records a delivery that did not go through.
type Failure struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Report summarises one notification batch.
type Report struct {
	BatchID   string    `json:"batchId"`
	Attempted int       `json:"attempted"`
	Delivered int       `json:"delivered"`
	Skipped   int       `json:"skipped"`
	Failed    []Failure `json:"failed"`
}

type Notifier struct {
	sender Sender
	logger *zap.Logger
}

func NewNotifier(sender Sender, log *zap.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	return &Notifier{sender: sender, logger: logger.WithFields(log).Named("notify")}, nil
}

// Notify sends one message per candidate that has an email. A failed delivery is
// logged and recorded in the report; it never stops the rest of the batch.
func (n *Notifier) Notify(ctx context.Context, cands []candidates.Candidate, skills []string) Report {
	report := Report{
		BatchID: uuid.NewString(),
		Failed:  []Failure{},
	}
	log := n.logger.With(zap.String("batch_id", report.BatchID))
	started := time.Now()

	for _, c := range cands {
		if !c.HasEmail() {
			report.Skipped++
			log.Debug("candidate has no email", zap.String(logger.FieldCandidate, c.ID))
			continue
		}

		report.Attempted++
		if err := n.deliver(ctx, c, skills); err != nil {
			report.Failed = append(report.Failed, Failure{ID: c.ID, Email: c.Email, Reason: err.Error()})
			log.Error("email failed",
				zap.String(logger.FieldCandidate, c.ID),
				zap.String("email", c.Email),
				zap.Error(err),
			)
			continue
		}

		report.Delivered++
		log.Info("email sent", zap.String(logger.FieldCandidate, c.ID), zap.String("email", c.Email))
	}

	log.Info("notification batch finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("delivered", report.Delivered),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("took", time.Since(started)),
	)
	return report
}

func (n *Notifier) deliver(ctx context.Context, c candidates.Candidate, skills []string) error {
	msg, err := Render(c.Email, c.ID, skills)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

// Package events defines the domain events emitted after successful writes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
)

const (
	TopicAccountRegistered = "account.registered"
	TopicReviewCreated     = "review.created"
	TopicReviewUpdated     = "review.updated"
	TopicReviewDeleted     = "review.deleted"
)

// Event is a JSON-encodable payload published under Topic.
type Event interface {
	Topic() string
}

type AccountRegistered struct {
	AccountID string    `json:"accountId"`
	Email     string    `json:"email"`
	At        time.Time `json:"at"`
}

func (AccountRegistered) Topic() string { return TopicAccountRegistered }

type ReviewCreated struct {
	ReviewID string    `json:"reviewId"`
	EntryUID string    `json:"entryUid"`
	UserID   string    `json:"userId"`
	Rating   int       `json:"rating"`
	At       time.Time `json:"at"`
}

func (ReviewCreated) Topic() string { return TopicReviewCreated }

type ReviewUpdated struct {
	ReviewID string    `json:"reviewId"`
	EntryUID string    `json:"entryUid"`
	UserID   string    `json:"userId"`
	Rating   int       `json:"rating"`
	At       time.Time `json:"at"`
}

func (ReviewUpdated) Topic() string { return TopicReviewUpdated }

type ReviewDeleted struct {
	ReviewID string    `json:"reviewId"`
	EntryUID string    `json:"entryUid"`
	UserID   string    `json:"userId"`
	At       time.Time `json:"at"`
}

func (ReviewDeleted) Topic() string { return TopicReviewDeleted }

// Publisher forwards events to a message broker. Delivery is best effort:
// failures are logged and never reach the caller. A Publisher without a
// broker drops every event.
type Publisher struct {
	mq     *mq.MQ
	logger logrus.FieldLogger
}

func NewPublisher(broker *mq.MQ, logger logrus.FieldLogger) *Publisher {
	return &Publisher{mq: broker, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.mq == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("topic", event.Topic()).Warn("encode event")
		return
	}

	id, err := p.mq.Publish(ctx, event.Topic(), data, map[string]string{"topic": event.Topic()})
	if err != nil {
		p.logger.WithError(err).WithField("topic", event.Topic()).Warn("publish event")
		return
	}
	p.logger.WithFields(logrus.Fields{"topic": event.Topic(), "message_id": id}).Debug("event published")
}

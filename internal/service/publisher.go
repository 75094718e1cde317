// Package service holds the background and cross-cutting pieces that sit
// between the conversation machines and the outside world: the audit
// event publisher and the daily reminder dispatcher.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/shift-checklist-bot/internal/model"
	"github.com/iliyamo/shift-checklist-bot/internal/queue"
)

// ReportPublisher publishes ReportCompletedEvent messages to the
// report.completed queue. Errors are logged and returned so callers can
// ignore a broker outage without interrupting the conversation flow.
type ReportPublisher struct {
	URL string
}

func NewReportPublisher(url string) *ReportPublisher {
	return &ReportPublisher{URL: url}
}

// PublishReportCompleted converts the report into its audit event and
// publishes it as a persistent message. A fresh connection per publish
// keeps the publisher stateless; volume here is a handful of events per
// shift, not a throughput concern.
func (p *ReportPublisher) PublishReportCompleted(ctx context.Context, rep model.Report) error {
	done := 0
	for _, r := range rep.Results {
		if r.Outcome == model.OutcomeDone {
			done++
		}
	}
	ev := queue.ReportCompletedEvent{
		UserID:      rep.UserID,
		UserName:    rep.UserName,
		Role:        rep.Role,
		Checklist:   rep.Checklist,
		TaskCount:   len(rep.Results),
		DoneCount:   done,
		CompletedAt: rep.CreatedAt.Format(time.RFC3339),
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare("report.completed", true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", "report.completed", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

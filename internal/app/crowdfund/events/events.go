// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfunding/blob/master/LICENSE.md.

// Package events delivers the events of successful transactions to
// subscribers outside the process.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfunding/internal/app/crowdfund"
)

type Publisher interface {
	Publish(ctx context.Context, receipt *crowdfund.Receipt) error
	Close() error
}

// Message is the wire form of one event.
type Message struct {
	TxID      string          `json:"txId"`
	Block     uint64          `json:"block"`
	Method    string          `json:"method"`
	Event     crowdfund.Event `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
}

// Messages splits a successful receipt into one message per event.
func Messages(receipt *crowdfund.Receipt) []Message {
	if receipt == nil || !receipt.Succeeded() {
		return nil
	}
	res := make([]Message, 0, len(receipt.Events))
	for _, e := range receipt.Events {
		res = append(res, Message{
			TxID:      receipt.TxID,
			Block:     receipt.Block,
			Method:    receipt.Method,
			Event:     e,
			Timestamp: receipt.Timestamp,
		})
	}
	return res
}

func (m Message) Encode() ([]byte, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode event %s of tx %s", m.Event.Name, m.TxID)
	}
	return buf, nil
}

type LogPublisher struct {
	log logrus.FieldLogger
}

func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, receipt *crowdfund.Receipt) error {
	for _, m := range Messages(receipt) {
		p.log.WithFields(logrus.Fields{
			"tx":       m.TxID,
			"block":    m.Block,
			"contract": m.Event.Contract.Hex(),
		}).Info(m.Event.String())
	}
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// MemoryPublisher keeps everything it was given.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, receipt *crowdfund.Receipt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Messages(receipt)...)
	return nil
}

func (p *MemoryPublisher) Close() error {
	return nil
}

func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Names lists published event names in order.
func (p *MemoryPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		res = append(res, m.Event.Name)
	}
	return res
}

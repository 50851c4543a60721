// Package mailtest provides an in-memory mail.Sender for tests.
package mailtest

import (
	"context"
	"errors"
	"sync"

	"github.com/opsmind/auth/internal/domain"
)

var ErrDeliveryFailed = errors.New("mailtest: delivery failed")

type Sent struct {
	To      string
	Code    string
	Purpose domain.Purpose
}

// Outbox records every delivered code. Set Fail to make deliveries error.
type Outbox struct {
	mu   sync.Mutex
	sent []Sent
	Fail bool
}

func (o *Outbox) SendOTP(_ context.Context, to, code string, purpose domain.Purpose) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail {
		return ErrDeliveryFailed
	}
	o.sent = append(o.sent, Sent{To: to, Code: code, Purpose: purpose})
	return nil
}

func (o *Outbox) SetFail(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Fail = fail
}

func (o *Outbox) All() []Sent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Sent(nil), o.sent...)
}

// Last returns the newest code sent to the address for the purpose.
func (o *Outbox) Last(to string, purpose domain.Purpose) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == to && o.sent[i].Purpose == purpose {
			return o.sent[i].Code, true
		}
	}
	return "", false
}

func (o *Outbox) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

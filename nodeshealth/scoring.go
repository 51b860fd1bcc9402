// Package nodeshealth scores errors reported against nodes and quarantines the
// ones that fail too often, so that routing can try healthy nodes first.
package nodeshealth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ErrorWeightFunc maps an error reported for a node to a score penalty.
type ErrorWeightFunc func(err error) uint64

// ErrorWeights holds the penalty of each error class.
type ErrorWeights struct {
	ContextCancelled  uint64
	ContextTimeout    uint64
	Default           uint64
	Timeout           uint64
	ConnectionRefused uint64
	TLSCritical       uint64
	NotFound          uint64
	DNSDefault        uint64
	NetDefault        uint64
}

// Scoring configures how scores grow and when a node is quarantined.
type Scoring struct {
	Weight ErrorWeightFunc
	// QuarantineCutOff is the score at which the node is quarantined.
	QuarantineCutOff uint64
	// ReleaseScore is the score a node restarts with when it leaves quarantine.
	ReleaseScore uint64
	// ResetInterval forgets the score of a node that had no error for that long.
	ResetInterval time.Duration
}

// Validate checks that scoring parameters are usable.
func (s Scoring) Validate() error {
	if s.Weight == nil {
		return errors.New("node health scoring: Weight must be provided")
	}
	if s.QuarantineCutOff == 0 {
		return errors.New("node health scoring: QuarantineCutOff must be > 0")
	}
	if s.ResetInterval <= 0 {
		return fmt.Errorf("node health scoring: ResetInterval must be > 0 (got %s)", s.ResetInterval)
	}
	return nil
}

// Status is the health record of one node.
type Status struct {
	score       uint64
	quarantined bool
	updated     time.Time
}

// Score returns the accumulated error score.
func (s Status) Score() uint64 { return s.score }

// Quarantined reports whether the node is quarantined.
func (s Status) Quarantined() bool { return s.quarantined }

// Updated returns when the status last changed.
func (s Status) Updated() time.Time { return s.updated }

func (s Scoring) newStatus(now time.Time) *Status {
	return &Status{updated: now}
}

// apply adds the penalty of err to status and reports whether the node just got quarantined.
func (s Scoring) apply(status *Status, err error, now time.Time) bool {
	if status.quarantined {
		return false
	}
	if now.Sub(status.updated) >= s.ResetInterval {
		status.score = 0
		status.updated = now
	}
	delta := s.Weight(err)
	if delta == 0 {
		return false
	}
	status.score += delta
	status.updated = now
	if status.score >= s.QuarantineCutOff {
		status.quarantined = true
		return true
	}
	return false
}

func (s Scoring) release(status *Status, now time.Time) {
	if !status.quarantined {
		return
	}
	status.quarantined = false
	status.score = s.ReleaseScore
	status.updated = now
}

// WeightsFunc returns an ErrorWeightFunc classifying errors with w.
func WeightsFunc(w ErrorWeights) ErrorWeightFunc {
	return func(err error) uint64 {
		if err == nil {
			return 0
		}
		switch {
		case errors.Is(err, context.Canceled):
			return w.ContextCancelled
		case errors.Is(err, context.DeadlineExceeded):
			return w.ContextTimeout
		case errors.Is(err, syscall.ECONNREFUSED):
			return w.ConnectionRefused
		}

		var certErr *tls.CertificateVerificationError
		if errors.As(err, &certErr) {
			return w.TLSCritical
		}
		var headerErr tls.RecordHeaderError
		if errors.As(err, &headerErr) {
			return w.NetDefault
		}

		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			switch {
			case dnsErr.IsTimeout:
				return w.Timeout
			case dnsErr.IsNotFound:
				return w.NotFound
			default:
				return w.DNSDefault
			}
		}

		var opErr *net.OpError
		if errors.As(err, &opErr) {
			if opErr.Timeout() {
				return w.Timeout
			}
			return w.NetDefault
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			if netErr.Timeout() {
				return w.Timeout
			}
			return w.NetDefault
		}
		return w.Default
	}
}

// DefaultErrorWeights are the penalties used by DefaultScoring.
var DefaultErrorWeights = ErrorWeights{
	Default:           1,
	Timeout:           40,
	ConnectionRefused: 40,
	TLSCritical:       40,
	NotFound:          40,
	NetDefault:        2,
	DNSDefault:        2,
}

// DefaultScoring quarantines a node after roughly three hard failures within ten seconds.
var DefaultScoring = Scoring{
	Weight:           WeightsFunc(DefaultErrorWeights),
	QuarantineCutOff: 120,
	ReleaseScore:     60,
	ResetInterval:    10 * time.Second,
}

// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	applog "tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/internal/transport"
)

// DefaultInterval applies when a non-positive interval is configured.
const DefaultInterval = 16 * time.Millisecond

// Publisher keeps the latest estimate and sends it over UDP at most once per
// interval. Estimates arriving faster than that are coalesced; an unchanged
// estimate is not resent.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker, doneChan, latest and pending

	latest  pitch.Estimate
	pending bool

	packetBuffer []byte // reused, only touched by the publisher goroutine
	sent         uint64
}

// NewPublisher wraps sender. Call Start to begin publishing.
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)

	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: make([]byte, 0, headerSize+8),
	}, nil
}

// Start launches the publishing goroutine. Calling it twice is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				// Do not lose the last estimate on shutdown.
				p.publish()
				return
			}
		}
	}()
}

// Stop ends the publishing goroutine and waits for it.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Stopped after %d packets", p.sent)
	return nil
}

// Send records est as the next estimate to publish. Values other than
// pitch.Estimate are rejected.
func (p *Publisher) Send(data any) error {
	var est pitch.Estimate
	switch v := data.(type) {
	case pitch.Estimate:
		est = v
	case *pitch.Estimate:
		est = *v
	default:
		return fmt.Errorf("UDPPublisher: cannot publish %T", data)
	}

	p.mu.Lock()
	p.latest = est
	p.pending = true
	p.mu.Unlock()
	return nil
}

func (p *Publisher) publish() {
	p.mu.Lock()
	if !p.pending {
		p.mu.Unlock()
		return
	}
	est := p.latest
	p.pending = false
	p.mu.Unlock()

	p.packetBuffer = PacketFromEstimate(est).AppendBinary(p.packetBuffer[:0])
	if err := p.sender.Send(p.packetBuffer); err != nil {
		applog.Errorf("UDPPublisher: %v", err)
		return
	}
	p.sent++
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", est.Seq, len(p.packetBuffer))
}

// Close stops publishing and closes the sender.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ transport.Transport = (*Publisher)(nil)

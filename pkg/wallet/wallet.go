package wallet

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/provider"
)

// opTimeout bounds any single transport call made during a reconciliation.
const opTimeout = 15 * time.Second

// Synchronizer owns the single source of truth for {connection status,
// address, chain, balance}. All mutation happens on one goroutine: commands,
// transport notifications, heartbeat ticks and async balance results are
// drained from channels and handled to completion one at a time, so no two
// reconciliations can interleave into a torn snapshot.
type Synchronizer struct {
	adapter   *provider.Adapter
	heartbeat time.Duration

	commands  chan func()
	balanceCh chan balanceResult
	stopChan  chan struct{}
	stopOnce  sync.Once

	// loop-owned, never touched outside run()
	session *provider.Session
	status  Status
	state   models.WalletState

	// published copies for synchronous readers
	mu          sync.RWMutex
	pubStatus   Status
	pubState    models.WalletState
	pubSession  *provider.Session
	subscribers []Subscriber
}

// balanceResult is an async balance read tagged with the session epoch it
// was started under; results from a superseded epoch are discarded.
type balanceResult struct {
	epoch   uint64
	balance string
}

func NewSynchronizer(adapter *provider.Adapter, heartbeat time.Duration) *Synchronizer {
	return &Synchronizer{
		adapter:   adapter,
		heartbeat: heartbeat,
		commands:  make(chan func(), 16),
		balanceCh: make(chan balanceResult, 4),
		stopChan:  make(chan struct{}),
		status:    StatusConnecting,
		pubStatus: StatusConnecting,
		state:     models.DisconnectedState(),
		pubState:  models.DisconnectedState(),
	}
}

// Start launches the reconciliation loop. It first attempts a silent session
// restore (no permission prompt), then serves commands, notifications and
// heartbeats until Stop or context cancellation.
func (s *Synchronizer) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// State returns the last published snapshot.
func (s *Synchronizer) State() models.WalletState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pubState
}

func (s *Synchronizer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pubStatus
}

// IsConnecting reports whether a connect (startup restore or explicit) is in
// flight.
func (s *Synchronizer) IsConnecting() bool {
	return s.Status() == StatusConnecting
}

// Connect requests wallet access, prompting the user if needed. A no-op when
// the transport is unavailable or a session already exists.
func (s *Synchronizer) Connect() {
	s.post(func() { s.doConnect() })
}

// Disconnect drops the session immediately; no further transport calls can
// use the stale handle.
func (s *Synchronizer) Disconnect() {
	s.post(func() {
		if s.status != StatusDisconnected {
			s.toDisconnected()
		}
	})
}

// RefreshBalance re-reads the balance on demand. An update is published only
// when the formatted value actually changed.
func (s *Synchronizer) RefreshBalance() {
	s.post(func() { s.startBalanceRead() })
}

// SwitchNetwork asks the wallet to change chains and reports the outcome.
// The resulting chainChanged notification drives the snapshot rebuild.
func (s *Synchronizer) SwitchNetwork(chainID int64) error {
	reply := make(chan error, 1)
	s.post(func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		reply <- s.adapter.SwitchNetwork(ctx, chainID)
	})
	select {
	case err := <-reply:
		return err
	case <-s.stopChan:
		return context.Canceled
	}
}

// Session exposes the live provider handle for read-only delegated calls
// (fee estimate, send). Nil while disconnected.
func (s *Synchronizer) Session() *provider.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pubStatus != StatusConnected {
		return nil
	}
	return s.pubSession
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (s *Synchronizer) Subscribe() Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(Subscriber, 100)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (s *Synchronizer) Unsubscribe(ch Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Synchronizer) post(fn func()) {
	select {
	case s.commands <- fn:
	case <-s.stopChan:
	}
}

func (s *Synchronizer) run(ctx context.Context) {
	s.restoreSession()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case fn := <-s.commands:
			fn()
		case n := <-s.adapter.Notifications():
			s.handleNotification(n)
		case r := <-s.balanceCh:
			s.applyBalance(r)
		case <-ticker.C:
			s.heartbeatTick()
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// restoreSession re-establishes a prior grant without prompting, so a
// restart picks the wallet back up the way a page reload would.
func (s *Synchronizer) restoreSession() {
	if !s.adapter.Available() {
		s.toDisconnected()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	accounts, err := s.adapter.QueryAccounts(ctx)
	if err != nil || len(accounts) == 0 {
		if err != nil {
			log.Printf("session restore: %v", err)
		}
		s.toDisconnected()
		return
	}
	s.establish(accounts)
}

func (s *Synchronizer) doConnect() {
	if s.status == StatusConnected {
		return
	}
	if !s.adapter.Available() {
		log.Printf("connect: wallet endpoint not available")
		return
	}

	s.status = StatusConnecting
	s.publish()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	accounts, err := s.adapter.RequestAccounts(ctx)
	if err != nil {
		log.Printf("connect: %v", err)
		s.toDisconnected()
		return
	}
	if len(accounts) == 0 {
		s.toDisconnected()
		return
	}
	s.establish(accounts)
}

// establish mints a fresh session for the primary account and rebuilds the
// whole snapshot. Rebuilding rather than patching keeps every field
// consistent with the new account/chain. Any failure collapses to
// Disconnected instead of leaving a half-updated state.
func (s *Synchronizer) establish(accounts []string) {
	sess := s.adapter.NewSession(accounts[0])

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snapshot, err := sess.Snapshot(ctx)
	if err != nil {
		log.Printf("snapshot rebuild: %v", err)
		s.toDisconnected()
		return
	}
	if !sess.Current() {
		// Superseded while the snapshot was being read; drop the result.
		return
	}

	s.session = sess
	s.status = StatusConnected
	s.state = snapshot
	s.publish()
}

func (s *Synchronizer) toDisconnected() {
	s.adapter.DropSession()
	s.session = nil
	s.status = StatusDisconnected
	s.state = models.DisconnectedState()
	s.publish()
}

func (s *Synchronizer) handleNotification(n provider.Notification) {
	switch n.Type {
	case provider.AccountsChanged:
		if len(n.Accounts) == 0 {
			// Permission revoked or the wallet locked.
			if s.status != StatusDisconnected {
				s.toDisconnected()
			}
			return
		}
		// A new primary account carries its own balance and permissions;
		// treat it like a fresh connect.
		s.establish(n.Accounts)

	case provider.ChainChanged:
		// A chain switch can silently invalidate the balance and even the
		// account set, so re-read accounts before rebuilding.
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		accounts, err := s.adapter.QueryAccounts(ctx)
		cancel()
		if err != nil {
			log.Printf("requery after chain change: %v", err)
			s.toDisconnected()
			return
		}
		if len(accounts) == 0 {
			s.toDisconnected()
			return
		}
		s.establish(accounts)
	}
}

func (s *Synchronizer) heartbeatTick() {
	if s.status != StatusConnected || s.session == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	accounts, err := s.adapter.QueryAccounts(ctx)
	cancel()
	if err != nil {
		// Transient endpoint trouble; the session stays up and the next
		// tick tries again.
		log.Printf("heartbeat: %v", err)
		return
	}

	if len(accounts) == 0 {
		log.Printf("heartbeat: wallet locked or grant revoked, ending session")
		s.toDisconnected()
		return
	}

	if !strings.EqualFold(accounts[0], s.state.Address) {
		// The account changed without an event firing. A full rebuild is
		// the safe recovery for that kind of discontinuity.
		s.establish(accounts)
		return
	}

	s.startBalanceRead()
}

// startBalanceRead kicks off an epoch-tagged balance read off the loop so a
// slow endpoint cannot stall reconciliation.
func (s *Synchronizer) startBalanceRead() {
	if s.status != StatusConnected || s.session == nil {
		return
	}
	sess := s.session
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res := balanceResult{epoch: sess.Epoch(), balance: sess.Balance(ctx)}
		select {
		case s.balanceCh <- res:
		case <-s.stopChan:
		}
	}()
}

func (s *Synchronizer) applyBalance(r balanceResult) {
	if s.status != StatusConnected || s.session == nil {
		return
	}
	if r.epoch != s.session.Epoch() {
		// Read was started under a session that no longer exists.
		return
	}
	if r.balance == s.state.Balance {
		return
	}
	s.state.Balance = r.balance
	s.publish()
}

func (s *Synchronizer) publish() {
	s.mu.Lock()
	s.pubStatus = s.status
	s.pubState = s.state
	s.pubSession = s.session
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	event := Event{Type: EventStateUpdated, Status: s.status, State: s.state}
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			// Subscriber is slow; it will catch up on the next event.
		}
	}
}

package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestStore() (*Store, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(StoreOptions{
		TransactionTimeout: 300 * time.Second,
		LinkTimeout:        120 * time.Second,
	})
	s.now = func() time.Time { return now }
	return s, &now
}

func TestDoWithoutSession(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	err := s.Do(Key{ChatID: 1, UserID: 2}, FamilyTransaction, func(*Session) error {
		t.Fatal("fn must not run without a session")
		return nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBeginThenDo(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense, State: StateAwaitingAmount})

	var got State
	err := s.Do(key, FamilyTransaction, func(sess *Session) error {
		got = sess.State
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != StateAwaitingAmount {
		t.Errorf("state = %q, want %q", got, StateAwaitingAmount)
	}
}

func TestFamiliesAreIndependent(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense, State: StateConfirm})
	s.Begin(&Session{Key: key, Flow: FlowLink, State: StateLinkCurrencyChoice})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	s.End(key, FamilyLink)
	if err := s.Do(key, FamilyLink, func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("link session should be gone, err = %v", err)
	}
	if err := s.Do(key, FamilyTransaction, func(*Session) error { return nil }); err != nil {
		t.Errorf("transaction session should survive, err = %v", err)
	}
}

func TestBeginReplacesSameFamily(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense, State: StateConfirm})
	s.Begin(&Session{Key: key, Flow: FlowIncome, State: StateAwaitingAmount})

	var flow FlowKind
	if err := s.Do(key, FamilyTransaction, func(sess *Session) error {
		flow = sess.Flow
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if flow != FlowIncome {
		t.Errorf("flow = %q, want %q", flow, FlowIncome)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestExpiryEvictsOnAccess(t *testing.T) {
	s, now := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense})

	*now = now.Add(301 * time.Second)
	err := s.Do(key, FamilyTransaction, func(*Session) error {
		t.Fatal("fn must not run on an expired session")
		return nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired session must be evicted, Len = %d", s.Len())
	}
}

func TestLinkTimeoutShorterThanTransaction(t *testing.T) {
	s, now := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense})
	s.Begin(&Session{Key: key, Flow: FlowLink})

	*now = now.Add(150 * time.Second)
	if err := s.Do(key, FamilyLink, func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("link session should have expired, err = %v", err)
	}
	if err := s.Do(key, FamilyTransaction, func(*Session) error { return nil }); err != nil {
		t.Errorf("transaction session should still be live, err = %v", err)
	}
}

func TestActivityExtendsLifetime(t *testing.T) {
	s, now := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense})

	for i := 0; i < 3; i++ {
		*now = now.Add(200 * time.Second)
		if err := s.Do(key, FamilyTransaction, func(*Session) error { return nil }); err != nil {
			t.Fatalf("touch %d: %v", i, err)
		}
	}
}

func TestEndInsideHandlerRemovesSession(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense})

	if err := s.Do(key, FamilyTransaction, func(sess *Session) error {
		sess.End()
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("ended session must be removed, Len = %d", s.Len())
	}
}

func TestEndIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense})
	s.End(key, FamilyTransaction)
	s.End(key, FamilyTransaction)
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestBeginDuringEndingHandler(t *testing.T) {
	s, _ := newTestStore()
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense})

	entered := make(chan struct{})
	release := make(chan struct{})
	doDone := make(chan error, 1)
	go func() {
		doDone <- s.Do(key, FamilyTransaction, func(sess *Session) error {
			close(entered)
			sess.End()
			<-release
			return nil
		})
	}()
	<-entered

	// Begin while the ending handler still holds the entry; it must not
	// publish into the entry the handler is about to remove.
	beginDone := make(chan struct{})
	go func() {
		s.Begin(&Session{Key: key, Flow: FlowIncome})
		close(beginDone)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	if err := <-doDone; err != nil {
		t.Fatalf("Do: %v", err)
	}
	<-beginDone

	var flow FlowKind
	if err := s.Do(key, FamilyTransaction, func(sess *Session) error {
		flow = sess.Flow
		return nil
	}); err != nil {
		t.Fatalf("freshly begun session is gone: %v", err)
	}
	if flow != FlowIncome {
		t.Errorf("flow = %q, want %q", flow, FlowIncome)
	}
}

func TestPerKeySerialization(t *testing.T) {
	s := NewStore(StoreOptions{})
	defer s.Close()

	key := Key{ChatID: 1, UserID: 2}
	s.Begin(&Session{Key: key, Flow: FlowExpense, Txn: &TxnMemory{}})

	const workers = 8
	const iterations = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				_ = s.Do(key, FamilyTransaction, func(sess *Session) error {
					sess.Txn.AmountMinor++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	var total int64
	if err := s.Do(key, FamilyTransaction, func(sess *Session) error {
		total = sess.Txn.AmountMinor
		return nil
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if total != workers*iterations {
		t.Errorf("counter = %d, want %d", total, workers*iterations)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	s, now := newTestStore()
	defer s.Close()

	fresh := Key{ChatID: 1, UserID: 1}
	stale := Key{ChatID: 2, UserID: 2}
	s.Begin(&Session{Key: stale, Flow: FlowExpense})
	*now = now.Add(250 * time.Second)
	s.Begin(&Session{Key: fresh, Flow: FlowExpense})

	*now = now.Add(100 * time.Second)
	s.sweep()

	if err := s.Do(stale, FamilyTransaction, func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale session should be swept, err = %v", err)
	}
	if err := s.Do(fresh, FamilyTransaction, func(*Session) error { return nil }); err != nil {
		t.Errorf("fresh session should survive sweep, err = %v", err)
	}
}

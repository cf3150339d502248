package concurrency

import (
	"testing"
	"time"

	"github.com/yuzudb/yuzudb/storage/page"
)

func TestLockTableSharedIsCompatible(t *testing.T) {
	lm := NewLockManager()
	t1 := NewTransaction(1, REPEATABLE_READ)
	t2 := NewTransaction(2, REPEATABLE_READ)

	if err := lm.LockTable(t1, LOCK_SHARED, 10); err != nil {
		t.Fatalf("t1 lock shared: %v", err)
	}
	if err := lm.LockTable(t2, LOCK_SHARED, 10); err != nil {
		t.Fatalf("t2 lock shared: %v", err)
	}
	if !t1.IsTableLockHeld(10, LOCK_SHARED) || !t2.IsTableLockHeld(10, LOCK_SHARED) {
		t.Fatalf("expected both transactions to hold the shared table lock")
	}
}

func TestLockTableUpgradeSharedToExclusive(t *testing.T) {
	lm := NewLockManager()
	txn := NewTransaction(1, REPEATABLE_READ)

	if err := lm.LockTable(txn, LOCK_SHARED, 10); err != nil {
		t.Fatalf("lock shared: %v", err)
	}
	if err := lm.LockTable(txn, LOCK_EXCLUSIVE, 10); err != nil {
		t.Fatalf("upgrade to exclusive: %v", err)
	}
	if txn.IsTableLockHeld(10, LOCK_SHARED) {
		t.Fatalf("shared lock should have been replaced by the upgrade")
	}
	if !txn.IsTableLockHeld(10, LOCK_EXCLUSIVE) {
		t.Fatalf("expected exclusive table lock after upgrade")
	}
}

func TestLockTableUpgradeBlocksOnConflictingGrantedLock(t *testing.T) {
	lm := NewLockManager()
	t1 := NewTransaction(1, READ_COMMITTED)
	t2 := NewTransaction(2, READ_COMMITTED)

	if err := lm.LockTable(t1, LOCK_SHARED, 10); err != nil {
		t.Fatalf("t1 lock shared: %v", err)
	}
	if err := lm.LockTable(t2, LOCK_SHARED, 10); err != nil {
		t.Fatalf("t2 lock shared: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- lm.LockTable(t1, LOCK_EXCLUSIVE, 10) }()
	time.Sleep(20 * time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("expected upgrade to block while t2 still holds its shared lock, got %v", err)
	default:
	}
	if t1.IsTableLockHeld(10, LOCK_EXCLUSIVE) {
		t.Fatalf("upgrade should not have been granted yet")
	}

	if err := lm.UnlockTable(t2, 10); err != nil {
		t.Fatalf("t2 unlock: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("upgrade failed after t2 released: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("upgrade did not unblock after t2 released its shared lock")
	}
	if !t1.IsTableLockHeld(10, LOCK_EXCLUSIVE) {
		t.Fatalf("expected t1 to hold the exclusive lock after upgrade completes")
	}
}

func TestLockRowRequiresCompatibleTableLock(t *testing.T) {
	lm := NewLockManager()
	txn := NewTransaction(1, REPEATABLE_READ)
	rid := page.RID{}

	err := lm.LockRow(txn, LOCK_EXCLUSIVE, 10, rid)
	abortErr, ok := err.(*AbortError)
	if !ok || abortErr.Reason != TABLE_LOCK_NOT_PRESENT {
		t.Fatalf("expected TABLE_LOCK_NOT_PRESENT, got %v", err)
	}

	if err := lm.LockTable(txn, LOCK_INTENTION_EXCLUSIVE, 10); err != nil {
		t.Fatalf("lock table IX: %v", err)
	}
	if err := lm.LockRow(txn, LOCK_EXCLUSIVE, 10, rid); err != nil {
		t.Fatalf("lock row exclusive: %v", err)
	}
	if !txn.IsRowLockHeld(10, rid, LOCK_EXCLUSIVE) {
		t.Fatalf("expected row exclusive lock to be held")
	}
}

func TestLockRowRejectsIntentionModes(t *testing.T) {
	lm := NewLockManager()
	txn := NewTransaction(1, REPEATABLE_READ)
	lm.LockTable(txn, LOCK_INTENTION_EXCLUSIVE, 10)

	err := lm.LockRow(txn, LOCK_INTENTION_EXCLUSIVE, 10, page.RID{})
	abortErr, ok := err.(*AbortError)
	if !ok || abortErr.Reason != ATTEMPTED_INTENTION_LOCK_ON_ROW {
		t.Fatalf("expected ATTEMPTED_INTENTION_LOCK_ON_ROW, got %v", err)
	}
}

func TestDeadlockDetectionAbortsYoungestInCycle(t *testing.T) {
	lm := NewLockManager()
	t1 := NewTransaction(1, REPEATABLE_READ)
	t2 := NewTransaction(2, REPEATABLE_READ)

	if err := lm.LockTable(t1, LOCK_EXCLUSIVE, 100); err != nil {
		t.Fatalf("t1 lock 100: %v", err)
	}
	if err := lm.LockTable(t2, LOCK_EXCLUSIVE, 200); err != nil {
		t.Fatalf("t2 lock 200: %v", err)
	}

	done := make(chan error, 2)
	go func() { done <- lm.LockTable(t2, LOCK_EXCLUSIVE, 100) }()
	time.Sleep(20 * time.Millisecond)
	go func() { done <- lm.LockTable(t1, LOCK_EXCLUSIVE, 200) }()
	time.Sleep(20 * time.Millisecond)

	victim, ok := lm.HasCycle()
	if !ok {
		t.Fatalf("expected a cycle between t1 and t2")
	}
	if victim != 2 {
		t.Fatalf("expected youngest txn (2) to be chosen as victim, got %d", victim)
	}

	t2.SetState(ABORTED)
	lm.RemoveAllRequestsForTxn(victim)

	select {
	case err := <-done:
		_ = err
	case <-time.After(time.Second):
		t.Fatalf("waiter did not wake up after victim's requests were removed")
	}

	if _, ok := lm.HasCycle(); ok {
		t.Fatalf("expected no cycle after removing the victim's requests")
	}
}

package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pollwinner/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for the settlement stores.
// These let us test the real Engine logic without a database.
// ---------------------------------------------------------------------------

// fakeTx satisfies pgx.Tx for the methods the engine touches. Everything
// else panics via the embedded nil interface, which is what we want.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	tx *fakeTx
}

func (d *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	d.tx = &fakeTx{}
	return d.tx, nil
}

type mockPolls struct {
	mu    sync.Mutex
	polls map[string]*models.Poll
}

func newMockPolls(ps ...*models.Poll) *mockPolls {
	m := &mockPolls{polls: make(map[string]*models.Poll)}
	for _, p := range ps {
		cp := *p
		m.polls[p.PollID] = &cp
	}
	return m
}

func (m *mockPolls) GetForUpdate(_ context.Context, _ pgx.Tx, pollID string) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[pollID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPolls) Close(_ context.Context, _ pgx.Tx, pollID, winningOptionID string, closedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.polls[pollID]
	p.Status = models.PollStatusClosed
	p.ResultOptionID = &winningOptionID
	p.ClosedAt = &closedAt
	return nil
}

func (m *mockPolls) status(pollID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[pollID].Status
}

type mockVotes struct {
	votes []*models.Vote
}

func (m *mockVotes) ListByPoll(_ context.Context, _ pgx.Tx, pollID string) ([]*models.Vote, error) {
	var out []*models.Vote
	for _, v := range m.votes {
		if v.PollID == pollID {
			out = append(out, v)
		}
	}
	return out, nil
}

type mockWallets struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newMockWallets() *mockWallets {
	return &mockWallets{balances: make(map[string]int64)}
}

func (m *mockWallets) Credit(_ context.Context, _ pgx.Tx, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return nil
}

type mockTxns struct {
	mu      sync.Mutex
	created []*models.Transaction
	failOn  string // user id whose insert should fail
}

func (m *mockTxns) Create(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && t.UserID == m.failOn {
		return errors.New("insert failed")
	}
	cp := *t
	m.created = append(m.created, &cp)
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func twoOptionPoll(pollID string, price int64) *models.Poll {
	return &models.Poll{
		PollID:       pollID,
		Title:        "best option",
		Options:      []models.PollOption{{OptionID: "opt_a", Text: "A"}, {OptionID: "opt_b", Text: "B"}},
		PricePerVote: price,
		Status:       models.PollStatusActive,
	}
}

func vote(pollID, userID, optionID string, units, price int64) *models.Vote {
	return &models.Vote{
		VoteID:     models.NewID("vote"),
		PollID:     pollID,
		UserID:     userID,
		OptionID:   optionID,
		VoteCount:  units,
		AmountPaid: units * price,
	}
}

func newEngine(db *fakeDB, polls *mockPolls, votes *mockVotes, wallets *mockWallets, txns *mockTxns) *Engine {
	return NewEngine(db, polls, votes, wallets, txns, nil)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSettleDistributesLosingStakeProRata(t *testing.T) {
	// Three users stake 10 units each at 100 paise on the losing option,
	// two users hold 10 winning units each. Pool is 3000 paise over 20
	// winning units, so each winner receives 1500.
	const price = 100
	p := twoOptionPoll("poll_1", price)
	polls := newMockPolls(p)
	votes := &mockVotes{votes: []*models.Vote{
		vote("poll_1", "user_l1", "opt_a", 10, price),
		vote("poll_1", "user_l2", "opt_a", 10, price),
		vote("poll_1", "user_l3", "opt_a", 10, price),
		vote("poll_1", "user_w1", "opt_b", 10, price),
		vote("poll_1", "user_w2", "opt_b", 10, price),
	}}
	wallets := newMockWallets()
	txns := &mockTxns{}
	db := &fakeDB{}

	summary, err := newEngine(db, polls, votes, wallets, txns).Settle(context.Background(), "poll_1", "opt_b")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if summary.Pool != 3000 {
		t.Errorf("pool = %d, want 3000", summary.Pool)
	}
	if summary.TotalWinningUnits != 20 {
		t.Errorf("total winning units = %d, want 20", summary.TotalWinningUnits)
	}
	if summary.PerUnitShare != 150 {
		t.Errorf("per-unit share = %d, want 150", summary.PerUnitShare)
	}
	if summary.WinnersCount != 2 {
		t.Errorf("winners = %d, want 2", summary.WinnersCount)
	}
	if summary.Distributed != 3000 {
		t.Errorf("distributed = %d, want 3000", summary.Distributed)
	}
	for _, uid := range []string{"user_w1", "user_w2"} {
		if got := wallets.balances[uid]; got != 1500 {
			t.Errorf("wallet %s = %d, want 1500", uid, got)
		}
	}
	for _, uid := range []string{"user_l1", "user_l2", "user_l3"} {
		if got := wallets.balances[uid]; got != 0 {
			t.Errorf("losing wallet %s = %d, want 0", uid, got)
		}
	}
	if len(txns.created) != 2 {
		t.Fatalf("transactions recorded = %d, want 2", len(txns.created))
	}
	for _, tr := range txns.created {
		if tr.Type != models.TxnTypeWin || tr.Status != models.TxnStatusSuccess {
			t.Errorf("transaction %s: type=%s status=%s", tr.TransactionID, tr.Type, tr.Status)
		}
		if tr.Amount != 1500 {
			t.Errorf("transaction amount = %d, want 1500", tr.Amount)
		}
	}
	if polls.status("poll_1") != models.PollStatusClosed {
		t.Error("poll not closed after settlement")
	}
	if !db.tx.committed {
		t.Error("transaction not committed")
	}
}

func TestSettleSplitsAcrossUsersByUnits(t *testing.T) {
	// Winners with unequal unit counts split the pool pro-rata.
	const price = 50
	p := twoOptionPoll("poll_2", price)
	polls := newMockPolls(p)
	votes := &mockVotes{votes: []*models.Vote{
		vote("poll_2", "user_l1", "opt_a", 20, price), // pool 1000
		vote("poll_2", "user_w1", "opt_b", 3, price),
		vote("poll_2", "user_w2", "opt_b", 7, price),
	}}
	wallets := newMockWallets()
	db := &fakeDB{}

	summary, err := newEngine(db, polls, votes, wallets, &mockTxns{}).Settle(context.Background(), "poll_2", "opt_b")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	// 1000 / 10 units = 100 per unit.
	if wallets.balances["user_w1"] != 300 {
		t.Errorf("user_w1 = %d, want 300", wallets.balances["user_w1"])
	}
	if wallets.balances["user_w2"] != 700 {
		t.Errorf("user_w2 = %d, want 700", wallets.balances["user_w2"])
	}
	if summary.Distributed != 1000 {
		t.Errorf("distributed = %d, want 1000", summary.Distributed)
	}
}

func TestSettleIntegerRemainderStaysInPool(t *testing.T) {
	// Pool of 100 paise over 3 winning units: 33 per unit, 99 paid out,
	// 1 paisa retained. Payouts never exceed the pool.
	p := twoOptionPoll("poll_3", 100)
	polls := newMockPolls(p)
	votes := &mockVotes{votes: []*models.Vote{
		vote("poll_3", "user_l1", "opt_a", 1, 100),
		vote("poll_3", "user_w1", "opt_b", 3, 100),
	}}
	wallets := newMockWallets()
	db := &fakeDB{}

	summary, err := newEngine(db, polls, votes, wallets, &mockTxns{}).Settle(context.Background(), "poll_3", "opt_b")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if summary.PerUnitShare != 33 {
		t.Errorf("per-unit share = %d, want 33", summary.PerUnitShare)
	}
	if summary.Distributed != 99 {
		t.Errorf("distributed = %d, want 99", summary.Distributed)
	}
	if summary.Distributed > summary.Pool {
		t.Errorf("distributed %d exceeds pool %d", summary.Distributed, summary.Pool)
	}
	if wallets.balances["user_w1"] != 99 {
		t.Errorf("winner balance = %d, want 99", wallets.balances["user_w1"])
	}
}

func TestSettleNoWinnersClosesPollWithoutPayout(t *testing.T) {
	p := twoOptionPoll("poll_4", 100)
	polls := newMockPolls(p)
	votes := &mockVotes{votes: []*models.Vote{
		vote("poll_4", "user_l1", "opt_a", 5, 100),
	}}
	wallets := newMockWallets()
	txns := &mockTxns{}
	db := &fakeDB{}

	summary, err := newEngine(db, polls, votes, wallets, txns).Settle(context.Background(), "poll_4", "opt_b")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if summary.WinnersCount != 0 || summary.Distributed != 0 {
		t.Errorf("winners=%d distributed=%d, want 0/0", summary.WinnersCount, summary.Distributed)
	}
	if summary.Pool != 500 {
		t.Errorf("pool = %d, want 500", summary.Pool)
	}
	if len(wallets.balances) != 0 {
		t.Errorf("wallet writes = %v, want none", wallets.balances)
	}
	if len(txns.created) != 0 {
		t.Errorf("transactions = %d, want 0", len(txns.created))
	}
	if polls.status("poll_4") != models.PollStatusClosed {
		t.Error("poll not closed")
	}
}

func TestSettleClosedPollConflicts(t *testing.T) {
	p := twoOptionPoll("poll_5", 100)
	p.Status = models.PollStatusClosed
	polls := newMockPolls(p)
	db := &fakeDB{}

	_, err := newEngine(db, polls, &mockVotes{}, newMockWallets(), &mockTxns{}).Settle(context.Background(), "poll_5", "opt_b")
	if !errors.Is(err, ErrPollClosed) {
		t.Fatalf("err = %v, want ErrPollClosed", err)
	}
	if db.tx.committed {
		t.Error("transaction committed on conflict")
	}
	if !db.tx.rolledBack {
		t.Error("transaction not rolled back on conflict")
	}
}

func TestSettleUnknownPoll(t *testing.T) {
	db := &fakeDB{}
	_, err := newEngine(db, newMockPolls(), &mockVotes{}, newMockWallets(), &mockTxns{}).Settle(context.Background(), "poll_missing", "opt_b")
	if !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("err = %v, want ErrPollNotFound", err)
	}
}

func TestSettleInvalidWinningOption(t *testing.T) {
	p := twoOptionPoll("poll_6", 100)
	db := &fakeDB{}
	_, err := newEngine(db, newMockPolls(p), &mockVotes{}, newMockWallets(), &mockTxns{}).Settle(context.Background(), "poll_6", "opt_zzz")
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
}

func TestSettleRollsBackWhenPayoutFails(t *testing.T) {
	// A failed transaction insert aborts the whole settlement: no commit,
	// poll stays open.
	p := twoOptionPoll("poll_7", 100)
	polls := newMockPolls(p)
	votes := &mockVotes{votes: []*models.Vote{
		vote("poll_7", "user_l1", "opt_a", 10, 100),
		vote("poll_7", "user_w1", "opt_b", 5, 100),
	}}
	txns := &mockTxns{failOn: "user_w1"}
	db := &fakeDB{}

	_, err := newEngine(db, polls, votes, newMockWallets(), txns).Settle(context.Background(), "poll_7", "opt_b")
	if err == nil {
		t.Fatal("expected error from failing payout")
	}
	if db.tx.committed {
		t.Error("transaction committed despite payout failure")
	}
	if !db.tx.rolledBack {
		t.Error("transaction not rolled back")
	}
}

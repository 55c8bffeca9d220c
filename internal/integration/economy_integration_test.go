package integration

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"magnum_stars/internal/cache"
	"magnum_stars/internal/domain"
	"magnum_stars/internal/repository"
	"magnum_stars/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

const tolerance = 1e-9

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
	return db
}

func seedReserve(t *testing.T, db *pgxpool.Pool, magnum, stars float64) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO reserve (id, magnum_coins, stars, total_exchanges, total_volume)
		 VALUES (1, $1, $2, 0, 0)
		 ON CONFLICT (id) DO UPDATE
		 SET magnum_coins = EXCLUDED.magnum_coins, stars = EXCLUDED.stars,
		     total_exchanges = 0, total_volume = 0, last_updated = NOW()`,
		magnum, stars)
	if err != nil {
		t.Fatalf("seed reserve: %v", err)
	}
}

func createUser(t *testing.T, db *pgxpool.Pool, tgID int64, magnum, stars float64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (tg_id, username, magnum_coins, stars)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tg_id) DO UPDATE
		 SET magnum_coins = EXCLUDED.magnum_coins, stars = EXCLUDED.stars,
		     miner_active = FALSE, miner_level = 1, miner_efficiency = 1.0,
		     miner_total_earned = 0, miner_last_reward = 0,
		     total_earned_stars = 0, total_earned_magnum_coins = 0, total_exchanges = 0
		 RETURNING id`,
		tgID, "integration", magnum, stars)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func getUser(t *testing.T, db *pgxpool.Pool, id int64) *domain.User {
	t.Helper()
	u, err := repository.NewUserRepository(db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u
}

func noCache() *cache.UserCache {
	return cache.New("", "", 0, time.Minute)
}

func TestExchangeScenario(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seedReserve(t, db, 1_000_000, 1_000_000)
	userID := createUser(t, db, 910001, 1000, 0)

	svc := service.NewExchangeService(db, noCache(), 0.025, 1)

	res, err := svc.Exchange(ctx, userID, domain.MagnumToStars, 100)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}

	if math.Abs(res.Commission-2.5) > tolerance {
		t.Fatalf("commission = %v; want 2.5", res.Commission)
	}
	if math.Abs(res.Rate-1.0) > tolerance {
		t.Fatalf("rate = %v; want 1.0", res.Rate)
	}
	if math.Abs(res.Received-97.5) > tolerance {
		t.Fatalf("received = %v; want 97.5", res.Received)
	}

	u := getUser(t, db, userID)
	if math.Abs(u.MagnumCoins-900) > tolerance {
		t.Fatalf("user magnumCoins = %v; want 900", u.MagnumCoins)
	}
	if math.Abs(u.Stars-97.5) > tolerance {
		t.Fatalf("user stars = %v; want 97.5", u.Stars)
	}
	if math.Abs(u.TotalEarnedStars-97.5) > tolerance {
		t.Fatalf("totalEarnedStars = %v; want 97.5", u.TotalEarnedStars)
	}
	if u.TotalExchanges != 1 {
		t.Fatalf("totalExchanges = %d; want 1", u.TotalExchanges)
	}

	reserve, err := repository.NewReserveRepository(db).Get(ctx)
	if err != nil {
		t.Fatalf("get reserve: %v", err)
	}
	if math.Abs(reserve.MagnumCoins-1_000_100) > tolerance {
		t.Fatalf("reserve magnumCoins = %v; want 1000100", reserve.MagnumCoins)
	}
	if math.Abs(reserve.Stars-999_902.5) > tolerance {
		t.Fatalf("reserve stars = %v; want 999902.5", reserve.Stars)
	}
	if reserve.TotalExchanges != 1 || math.Abs(reserve.TotalVolume-100) > tolerance {
		t.Fatalf("reserve counters = %d/%v; want 1/100", reserve.TotalExchanges, reserve.TotalVolume)
	}

	history, err := svc.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Type != domain.MagnumToStars {
		t.Fatalf("history = %+v; want one magnum_to_stars record", history)
	}
}

func TestExchangeRejectionsLeaveStateUntouched(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seedReserve(t, db, 1_000_000, 1_000_000)
	userID := createUser(t, db, 910002, 50, 0)

	svc := service.NewExchangeService(db, noCache(), 0.025, 1)

	if _, err := svc.Exchange(ctx, userID, domain.MagnumToStars, 0.5); !errors.Is(err, service.ErrMinimumAmount) {
		t.Fatalf("expected ErrMinimumAmount, got %v", err)
	}
	if _, err := svc.Exchange(ctx, userID, domain.MagnumToStars, 100); !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := svc.Exchange(ctx, userID, "stars_to_gold", 10); !errors.Is(err, service.ErrUnsupportedPair) {
		t.Fatalf("expected ErrUnsupportedPair, got %v", err)
	}

	// tiny magnum pool makes the rate huge, so the stars pool cannot cover the payout
	seedReserve(t, db, 5, 1_000_000)
	if _, err := svc.Exchange(ctx, userID, domain.MagnumToStars, 10); !errors.Is(err, service.ErrInsufficientReserve) {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}

	u := getUser(t, db, userID)
	if math.Abs(u.MagnumCoins-50) > tolerance || u.Stars != 0 || u.TotalExchanges != 0 {
		t.Fatalf("rejected exchanges mutated state: %+v", u)
	}
}

func TestMinerAccrual(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	userID := createUser(t, db, 910003, 0, 0)

	svc := service.NewMinerService(db, noCache(), 0.1, 1000)

	u, err := svc.Start(ctx, userID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !u.Miner.Active {
		t.Fatal("miner should be active")
	}
	if delta := time.Now().Unix() - u.Miner.LastReward; delta < 0 || delta > 5 {
		t.Fatalf("lastReward not reset to start time, delta=%d", delta)
	}

	if _, err := svc.Start(ctx, userID); !errors.Is(err, service.ErrMinerAlreadyActive) {
		t.Fatalf("expected ErrMinerAlreadyActive, got %v", err)
	}

	// start resets the checkpoint, so an immediate pass pays nothing
	if _, err := svc.ProcessRewards(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if u = getUser(t, db, userID); u.Stars != 0 {
		t.Fatalf("stars after immediate pass = %v; want 0", u.Stars)
	}

	// rewind the checkpoint 2h01m40s and upgrade efficiency to 1.2
	rewound := time.Now().Unix() - 7300
	if _, err := db.Exec(ctx,
		`UPDATE users SET miner_last_reward = $1, miner_efficiency = 1.2 WHERE id = $2`,
		rewound, userID); err != nil {
		t.Fatalf("rewind checkpoint: %v", err)
	}

	if _, err := svc.ProcessRewards(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	u = getUser(t, db, userID)
	if math.Abs(u.Stars-0.24) > tolerance {
		t.Fatalf("stars = %v; want 0.24 (2h * 0.1 * 1.2)", u.Stars)
	}
	if math.Abs(u.Miner.TotalEarned-0.24) > tolerance || math.Abs(u.TotalEarnedStars-0.24) > tolerance {
		t.Fatalf("earned counters = %v/%v; want 0.24", u.Miner.TotalEarned, u.TotalEarnedStars)
	}
	if u.Miner.LastReward <= rewound {
		t.Fatal("lastReward did not advance")
	}

	// second pass right away credits nothing more
	if _, err := svc.ProcessRewards(ctx); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if u2 := getUser(t, db, userID); math.Abs(u2.Stars-0.24) > tolerance {
		t.Fatalf("stars after rerun = %v; want 0.24", u2.Stars)
	}

	if _, err := svc.Stop(ctx, userID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := svc.Stop(ctx, userID); !errors.Is(err, service.ErrMinerNotActive) {
		t.Fatalf("expected ErrMinerNotActive, got %v", err)
	}
}

func TestMinerUpgrade(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	userID := createUser(t, db, 910004, 0, 1500)

	svc := service.NewMinerService(db, noCache(), 0.1, 1000)

	u, err := svc.Upgrade(ctx, userID)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if u.Miner.Level != 2 {
		t.Fatalf("level = %d; want 2", u.Miner.Level)
	}
	if math.Abs(u.Miner.Efficiency-1.1) > tolerance {
		t.Fatalf("efficiency = %v; want 1.1", u.Miner.Efficiency)
	}
	if math.Abs(u.Stars-500) > tolerance {
		t.Fatalf("stars = %v; want 500", u.Stars)
	}

	if _, err := svc.Upgrade(ctx, userID); !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if u = getUser(t, db, userID); math.Abs(u.Stars-500) > tolerance || u.Miner.Level != 2 {
		t.Fatalf("failed upgrade mutated state: %+v", u.Miner)
	}
}

func TestStaleCheckpointSwapPaysNothing(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	userID := createUser(t, db, 910005, 0, 0)
	repo := repository.NewUserRepository(db)

	now := time.Now().Unix()
	if err := repo.StartMiner(ctx, userID, now-7200); err != nil {
		t.Fatalf("start: %v", err)
	}

	// first credit advances the checkpoint
	applied, err := repo.ApplyMinerReward(ctx, userID, 0.2, now-7200, now)
	if err != nil || !applied {
		t.Fatalf("first apply = %v, %v; want true, nil", applied, err)
	}

	// a racing pass still holding the old checkpoint must be a no-op
	applied, err = repo.ApplyMinerReward(ctx, userID, 0.2, now-7200, now)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied {
		t.Fatal("stale checkpoint swap must not credit")
	}

	u := getUser(t, db, userID)
	if math.Abs(u.Stars-0.2) > tolerance {
		t.Fatalf("stars = %v; want 0.2 (single credit)", u.Stars)
	}
}

package farmlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
)

const dateLayout = "2006-01-02"

// Store persists one farm-log row per account. The run controller is the
// single writer; it rewrites the row after every status or flag change.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	createStmt := `CREATE TABLE IF NOT EXISTS farm_logs (
        username TEXT NOT NULL,
        last_check TEXT NOT NULL,
        status TEXT NOT NULL DEFAULT 'Not farmed',
        today_points INTEGER NOT NULL DEFAULT 0,
        total_points INTEGER NOT NULL DEFAULT 0,
        daily INTEGER NOT NULL DEFAULT 0,
        punch_cards INTEGER NOT NULL DEFAULT 0,
        more_promotions INTEGER NOT NULL DEFAULT 0,
        shopping_game INTEGER NOT NULL DEFAULT 0,
        pc_searches INTEGER NOT NULL DEFAULT 0,
        mobile_searches INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY(username)
    )`
	if _, err := s.db.Exec(createStmt); err != nil {
		return err
	}
	return s.ensureColumns()
}

func (s *Store) ensureColumns() error {
	columns := map[string]bool{}
	rows, err := s.db.Query(`PRAGMA table_info(farm_logs)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		columns[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	alterStatements := []string{}
	addColumn := func(name, definition string) {
		if !columns[name] {
			alterStatements = append(alterStatements, definition)
		}
	}

	addColumn("status", `ALTER TABLE farm_logs ADD COLUMN status TEXT NOT NULL DEFAULT 'Not farmed'`)
	addColumn("today_points", `ALTER TABLE farm_logs ADD COLUMN today_points INTEGER NOT NULL DEFAULT 0`)
	addColumn("total_points", `ALTER TABLE farm_logs ADD COLUMN total_points INTEGER NOT NULL DEFAULT 0`)
	addColumn("daily", `ALTER TABLE farm_logs ADD COLUMN daily INTEGER NOT NULL DEFAULT 0`)
	addColumn("punch_cards", `ALTER TABLE farm_logs ADD COLUMN punch_cards INTEGER NOT NULL DEFAULT 0`)
	addColumn("more_promotions", `ALTER TABLE farm_logs ADD COLUMN more_promotions INTEGER NOT NULL DEFAULT 0`)
	addColumn("shopping_game", `ALTER TABLE farm_logs ADD COLUMN shopping_game INTEGER NOT NULL DEFAULT 0`)
	addColumn("pc_searches", `ALTER TABLE farm_logs ADD COLUMN pc_searches INTEGER NOT NULL DEFAULT 0`)
	addColumn("mobile_searches", `ALTER TABLE farm_logs ADD COLUMN mobile_searches INTEGER NOT NULL DEFAULT 0`)

	for _, stmt := range alterStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the persisted log for a username. A missing row yields a fresh
// NOT_FARMED log stamped with today, so new accounts start clean.
func (s *Store) Load(username string, today time.Time) (model.FarmLog, error) {
	name := normalizeUsername(username)

	var (
		logRow                                               model.FarmLog
		status                                               string
		daily, punch, more, shopping, pcSearch, mobileSearch int
	)
	err := s.db.QueryRow(`SELECT last_check, status, today_points, total_points, daily, punch_cards, more_promotions, shopping_game, pc_searches, mobile_searches FROM farm_logs WHERE username = ?`, name).
		Scan(&logRow.LastCheck, &status, &logRow.TodayPoints, &logRow.TotalPoints, &daily, &punch, &more, &shopping, &pcSearch, &mobileSearch)
	if err == sql.ErrNoRows {
		return model.FarmLog{
			LastCheck: today.UTC().Format(dateLayout),
			Status:    model.StatusNotFarmed,
		}, nil
	}
	if err != nil {
		return model.FarmLog{}, err
	}

	logRow.Status = model.ParseStatus(status)
	logRow.Daily = daily == 1
	logRow.PunchCards = punch == 1
	logRow.MorePromotions = more == 1
	logRow.ShoppingGame = shopping == 1
	logRow.PCSearches = pcSearch == 1
	logRow.MobileSearches = mobileSearch == 1

	if _, parseErr := time.Parse(dateLayout, logRow.LastCheck); parseErr != nil {
		logRow.LastCheck = today.UTC().Format(dateLayout)
	}
	return logRow, nil
}

// Save upserts the whole row for a username.
func (s *Store) Save(username string, logRow model.FarmLog) error {
	name := normalizeUsername(username)

	_, err := s.db.Exec(`INSERT INTO farm_logs(username, last_check, status, today_points, total_points, daily, punch_cards, more_promotions, shopping_game, pc_searches, mobile_searches)
    VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(username) DO UPDATE SET
        last_check = excluded.last_check,
        status = excluded.status,
        today_points = excluded.today_points,
        total_points = excluded.total_points,
        daily = excluded.daily,
        punch_cards = excluded.punch_cards,
        more_promotions = excluded.more_promotions,
        shopping_game = excluded.shopping_game,
        pc_searches = excluded.pc_searches,
        mobile_searches = excluded.mobile_searches`,
		name, logRow.LastCheck, string(logRow.Status), logRow.TodayPoints, logRow.TotalPoints,
		boolToInt(logRow.Daily), boolToInt(logRow.PunchCards), boolToInt(logRow.MorePromotions),
		boolToInt(logRow.ShoppingGame), boolToInt(logRow.PCSearches), boolToInt(logRow.MobileSearches))
	return err
}

// SaveAll persists every account's log in one transaction.
func (s *Store) SaveAll(accounts []model.Account) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		logRow := acc.Log
		_, err := tx.Exec(`INSERT INTO farm_logs(username, last_check, status, today_points, total_points, daily, punch_cards, more_promotions, shopping_game, pc_searches, mobile_searches)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(username) DO UPDATE SET
            last_check = excluded.last_check,
            status = excluded.status,
            today_points = excluded.today_points,
            total_points = excluded.total_points,
            daily = excluded.daily,
            punch_cards = excluded.punch_cards,
            more_promotions = excluded.more_promotions,
            shopping_game = excluded.shopping_game,
            pc_searches = excluded.pc_searches,
            mobile_searches = excluded.mobile_searches`,
			normalizeUsername(acc.Username), logRow.LastCheck, string(logRow.Status), logRow.TodayPoints, logRow.TotalPoints,
			boolToInt(logRow.Daily), boolToInt(logRow.PunchCards), boolToInt(logRow.MorePromotions),
			boolToInt(logRow.ShoppingGame), boolToInt(logRow.PCSearches), boolToInt(logRow.MobileSearches))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "gitlab.com/teomiscia/openingbell/database/models"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/models"
)

// DBService is the MySQL-backed session store.
type DBService struct {
	DB *gorm.DB
}

func NewDBService(dbHost string, dbPort string, dbName string, dbUser string, dbPass string) (*DBService, error) {
	dsn := dbUser + ":" + dbPass + "@tcp(" + dbHost + ":" + dbPort + ")/" + dbName + "?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	dbs := &DBService{
		DB: db,
	}

	err = dbs.DB.AutoMigrate(&database.Session{}, &database.InstrumentSnapshot{},
		&database.CaptureFailure{}, &database.IntradayStat{})
	if err != nil {
		return nil, err
	}

	return dbs, nil
}

func (dbs *DBService) FindSession(region string, tradingDay string) (*database.Session, error) {
	var session database.Session
	err := dbs.DB.Preload("Snapshots").
		Where("region = ? AND trading_day = ?", region, tradingDay).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession inserts the session and its snapshots in one
// transaction. The existence check plus the unique (region,
// trading_day) index together make the insert idempotent even when two
// captures race.
func (dbs *DBService) CreateSession(session *database.Session) error {
	return dbs.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&database.Session{}).
			Where("region = ? AND trading_day = ?", session.Region, session.TradingDay).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return interfaces.ErrDuplicateSession
		}
		if err := tx.Create(session).Error; err != nil {
			// A racing capture may have taken the key between the
			// check and the insert.
			var dup int64
			tx.Model(&database.Session{}).
				Where("region = ? AND trading_day = ?", session.Region, session.TradingDay).
				Count(&dup)
			if dup > 0 {
				return interfaces.ErrDuplicateSession
			}
			return err
		}
		return nil
	})
}

// ResolveSession flips a pending session to a terminal outcome. The
// outcome guard in the WHERE clause is what makes terminal outcomes
// immutable: a second verdict matches zero rows.
func (dbs *DBService) ResolveSession(sessionID uint, res interfaces.Resolution) (bool, error) {
	result := dbs.DB.Model(&database.Session{}).
		Where("id = ? AND outcome = ?", sessionID, string(models.OutcomePending)).
		Updates(map[string]interface{}{
			"outcome":           string(res.Outcome),
			"resolution_price":  res.Price,
			"resolution_reason": res.Reason,
			"resolved_at":       res.At,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (dbs *DBService) PendingSessions() ([]database.Session, error) {
	var sessions []database.Session
	err := dbs.DB.Preload("Snapshots").
		Where("outcome = ?", string(models.OutcomePending)).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (dbs *DBService) SetTheoreticalOutcome(snapshotID uint, outcome models.Outcome) error {
	return dbs.DB.Model(&database.InstrumentSnapshot{}).
		Where("id = ? AND theoretical_outcome = ?", snapshotID, string(models.OutcomePending)).
		Update("theoretical_outcome", string(outcome)).Error
}

func (dbs *DBService) RecordCaptureFailure(region string, tradingDay string, reason string) error {
	failure := database.CaptureFailure{
		Region:     region,
		TradingDay: tradingDay,
		Reason:     reason,
	}
	return dbs.DB.Create(&failure).Error
}

// SaveIntradayStats upserts on (region, trading_day, symbol) so a
// monitor restarted mid-session overwrites its own earlier summary.
func (dbs *DBService) SaveIntradayStats(stats []database.IntradayStat) error {
	if len(stats) == 0 {
		return nil
	}
	return dbs.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "region"}, {Name: "trading_day"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"high", "low", "close_price", "price_range",
			"year_high_breached", "year_low_breached",
		}),
	}).Create(&stats).Error
}

func (dbs *DBService) Sessions(filter interfaces.SessionFilter) ([]database.Session, error) {
	query := dbs.DB.Preload("Snapshots")
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.Outcome != "" {
		query = query.Where("outcome = ?", string(filter.Outcome))
	}
	if !filter.From.IsZero() {
		query = query.Where("opened_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("opened_at < ?", filter.To)
	}

	var sessions []database.Session
	if err := query.Order("opened_at").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (dbs *DBService) HitRate(region string, since time.Time) (interfaces.HitRateReport, error) {
	var report interfaces.HitRateReport

	query := "SELECT outcome, COUNT(*) FROM sessions WHERE deleted_at IS NULL AND opened_at >= ?"
	args := []interface{}{since}
	if region != "" {
		query += " AND region = ?"
		args = append(args, region)
	}
	query += " GROUP BY outcome"

	rows, err := dbs.DB.Raw(query, args...).Rows()
	if err != nil {
		return report, err
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return report, err
		}
		report.Total += count
		switch models.Outcome(outcome) {
		case models.OutcomeWorked:
			report.Worked = count
		case models.OutcomeDidntWork:
			report.DidntWork = count
		case models.OutcomeExpired:
			report.Expired = count
		case models.OutcomeNoEntry:
			report.NoEntry = count
		case models.OutcomeError:
			report.Errors = count
		case models.OutcomePending:
			report.Pending = count
		default:
			return report, fmt.Errorf("unknown outcome %q in sessions table", outcome)
		}
	}
	return report, rows.Err()
}

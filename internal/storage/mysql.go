package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	"charge-gateway/internal/config"
	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
)

// MySQLStore persists the attempt audit trail through bun on top of the
// MySQL driver.
type MySQLStore struct {
	db  *bun.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	sqldb, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{
		db:  bun.NewDB(sqldb, mysqldialect.New()),
		log: log,
	}

	if err := store.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating charge_attempts table if not exists")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.NewCreateTable().
		Model((*models.ChargeAttempt)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create charge_attempts table: %w", err)
	}
	return nil
}

func (s *MySQLStore) SaveAttempt(ctx context.Context, attempt *models.ChargeAttempt) error {
	now := time.Now()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(attempt).
		On("DUPLICATE KEY UPDATE").
		Set("status = VALUES(status)").
		Set("decline_code = VALUES(decline_code)").
		Set("updated_at = VALUES(updated_at)").
		Exec(ctx)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save attempt %s: %v", attempt.Reference, err))
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	s.log.LogDatabase("SAVE", "charge_attempts", fmt.Sprintf("Attempt %s saved with status %s", attempt.Reference, attempt.Status))
	return nil
}

func (s *MySQLStore) GetAttempt(ctx context.Context, reference string) (*models.ChargeAttempt, error) {
	attempt := new(models.ChargeAttempt)
	err := s.db.NewSelect().
		Model(attempt).
		Where("reference = ?", reference).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get attempt %s: %v", reference, err))
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *MySQLStore) UpsertStatus(ctx context.Context, reference string, status models.ChargeStatus, declineCode string) error {
	attempt := &models.ChargeAttempt{
		Reference:   reference,
		Status:      status,
		DeclineCode: declineCode,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	q := s.db.NewInsert().
		Model(attempt).
		On("DUPLICATE KEY UPDATE").
		Set("status = VALUES(status)").
		Set("updated_at = VALUES(updated_at)")
	if declineCode != "" {
		q = q.Set("decline_code = VALUES(decline_code)")
	}

	if _, err := q.Exec(ctx); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to upsert status for %s: %v", reference, err))
		return fmt.Errorf("failed to upsert status: %w", err)
	}

	s.log.LogDatabase("UPSERT", "charge_attempts", fmt.Sprintf("Attempt %s moved to status %s", reference, status))
	return nil
}

func (s *MySQLStore) ListAttempts(ctx context.Context, status models.ChargeStatus, limit, offset int) ([]*models.ChargeAttempt, error) {
	var attempts []*models.ChargeAttempt

	q := s.db.NewSelect().
		Model(&attempts).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	if err := q.Scan(ctx); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list attempts: %v", err))
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	SessionID        string    `bun:"session_id,pk"`
	ActiveSpecialist string    `bun:"active_specialist,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
}

type itemRow struct {
	bun.BaseModel `bun:"table:session_items,alias:i"`

	Seq       int64     `bun:"seq,pk,autoincrement"`
	SessionID string    `bun:"session_id,notnull"`
	ItemID    string    `bun:"item_id,notnull"`
	Role      string    `bun:"role,notnull"`
	Content   string    `bun:"content,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// PostgresStore persists session logs in Postgres via bun. Item ordering is the
// monotonically increasing seq column; the active-specialist pointer is a
// column on the sessions row.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres session store: dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// Init creates the backing tables if they do not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*sessionRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*itemRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create session_items table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, item contractx.Item) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(item.Content) == "" && item.Role != contractx.RoleTool {
		return ErrNilItem
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	row := &itemRow{
		SessionID: sessionID,
		ItemID:    item.ID,
		Role:      string(item.Role),
		Content:   item.Content,
		CreatedAt: item.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append session item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Items(ctx context.Context, sessionID string) ([]contractx.Item, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	var rows []itemRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session items: %w", err)
	}

	items := make([]contractx.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, contractx.Item{
			ID:        r.ItemID,
			Role:      contractx.Role(r.Role),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return items, nil
}

func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	if _, err := s.db.NewDelete().
		Model((*itemRow)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear session items: %w", err)
	}
	if _, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear session row: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveSpecialist(ctx context.Context, sessionID string) (contractx.SpecialistName, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}

	row := new(sessionRow)
	err := s.db.NewSelect().
		Model(row).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.SpecialistTriage, nil
		}
		return "", fmt.Errorf("read active specialist: %w", err)
	}
	return contractx.SpecialistName(row.ActiveSpecialist), nil
}

func (s *PostgresStore) SetActiveSpecialist(ctx context.Context, sessionID string, name contractx.SpecialistName) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	row := &sessionRow{
		SessionID:        sessionID,
		ActiveSpecialist: string(name),
		UpdatedAt:        time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("active_specialist = EXCLUDED.active_specialist").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set active specialist: %w", err)
	}
	return nil
}

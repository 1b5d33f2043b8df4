// Package history records pushed positions into the local SQLite store and
// prunes them after a retention period.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/state"
	"github.com/HerbHall/livefeed/internal/store"
	"github.com/HerbHall/livefeed/pkg/models"
)

const component = "history"

// Config holds history settings.
type Config struct {
	Path                string        `mapstructure:"path"`
	Retention           time.Duration `mapstructure:"retention"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
}

// DefaultConfig keeps a week of positions and prunes hourly.
func DefaultConfig() Config {
	return Config{
		Retention:           7 * 24 * time.Hour,
		MaintenanceInterval: time.Hour,
	}
}

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// Recorder appends every position update to position_history.
type Recorder struct {
	db     *store.Store
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New applies the history migrations and returns a Recorder.
func New(ctx context.Context, db *store.Store, cfg Config, logger *zap.Logger) (*Recorder, error) {
	def := DefaultConfig()
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = def.MaintenanceInterval
	}
	if err := db.Migrate(ctx, component, migrations()); err != nil {
		return nil, fmt.Errorf("history migrations: %w", err)
	}
	return &Recorder{db: db, cfg: cfg, logger: logger, now: time.Now}, nil
}

// Subscribe records positions published by the position store.
func (r *Recorder) Subscribe(bus Subscriber) (unsubscribe func()) {
	return bus.Subscribe(state.TopicPositionsUpdate, func(ctx context.Context, e event.Event) {
		list, ok := e.Payload.([]models.Position)
		if !ok || len(list) == 0 {
			return
		}
		if err := r.Record(ctx, list); err != nil {
			r.logger.Warn("failed to record positions",
				zap.Int("count", len(list)),
				zap.Error(err),
			)
		}
	})
}

// Record inserts the positions in one transaction.
func (r *Recorder) Record(ctx context.Context, list []models.Position) error {
	recordedAt := r.now().UnixMilli()
	return r.db.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO position_history
				(position_id, device_id, fix_time, latitude, longitude, altitude,
				 speed, course, valid, address, attributes, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range list {
			p := &list[i]
			attrs, err := json.Marshal(p.Attributes)
			if err != nil {
				return fmt.Errorf("marshal attributes for position %d: %w", p.ID, err)
			}
			if p.Attributes == nil {
				attrs = []byte("{}")
			}
			_, err = stmt.ExecContext(ctx,
				p.ID, p.DeviceID, fixTime(p).UnixMilli(), p.Latitude, p.Longitude, p.Altitude,
				p.Speed, p.Course, p.Valid, p.Address, string(attrs), recordedAt,
			)
			if err != nil {
				return fmt.Errorf("insert position %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// Recent returns up to limit positions for a device, newest fix first.
func (r *Recorder) Recent(ctx context.Context, deviceID int64, limit int) ([]models.Position, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT position_id, device_id, fix_time, latitude, longitude, altitude,
		       speed, course, valid, address, attributes
		FROM position_history
		WHERE device_id = ?
		ORDER BY fix_time DESC, id DESC
		LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var (
			p     models.Position
			fix   int64
			attrs string
		)
		if err := rows.Scan(&p.ID, &p.DeviceID, &fix, &p.Latitude, &p.Longitude, &p.Altitude,
			&p.Speed, &p.Course, &p.Valid, &p.Address, &attrs); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		p.FixTime = time.UnixMilli(fix).UTC()
		if attrs != "{}" {
			if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Prune deletes rows recorded before cutoff and reports how many went.
func (r *Recorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx,
		"DELETE FROM position_history WHERE recorded_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Start launches the maintenance loop. Stop ends it.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.MaintenanceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runMaintenance(ctx)
			}
		}
	}()
}

// Stop cancels the maintenance loop and waits for it.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Recorder) runMaintenance(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := r.Prune(ctx, r.now().Add(-r.cfg.Retention))
	if err != nil {
		r.logger.Warn("failed to prune position history", zap.Error(err))
		return
	}
	if deleted > 0 {
		r.logger.Info("pruned position history", zap.Int64("count", deleted))
	}
}

// fixTime prefers the device fix time and falls back to the server time.
func fixTime(p *models.Position) time.Time {
	if !p.FixTime.IsZero() {
		return p.FixTime
	}
	return p.ServerTime
}

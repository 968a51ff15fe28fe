package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded ledger event. EventID is unique in storage, so a
// redelivered event inserts nothing the second time.
type Entry struct {
	EventID    string
	SaleID     string
	EventType  string
	Payload    []byte
	RecordedAt time.Time
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Record(ctx context.Context, e Entry) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO settlement_audit(event_id, sale_id, event_type, payload, recorded_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.SaleID, e.EventType, e.Payload, e.RecordedAt)
	return err
}

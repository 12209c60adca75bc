package realtime

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Channel is the Postgres notification channel raised by the insert trigger
// in db/migrations/001_init.sql.
const Channel = "appointment_inserted"

// Listener holds one dedicated connection on LISTEN and turns every
// notification into a hub broadcast.
type Listener struct {
	pool *pgxpool.Pool
	hub  *Hub
}

func NewListener(pool *pgxpool.Pool, hub *Hub) *Listener {
	return &Listener{pool: pool, hub: hub}
}

// Run blocks until ctx is cancelled or the connection drops. A dropped
// connection stops live updates until the process restarts; it is logged,
// not retried.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}
	log.WithField("channel", Channel).Info("listening for appointment inserts")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Error("notification stream closed, live updates stopped")
			return err
		}
		log.WithField("appointment_id", n.Payload).Debug("appointment inserted")
		l.hub.Broadcast()
	}
}

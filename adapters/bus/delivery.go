package bus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Delivery is one message handed to a Handler. The handler owns the ack:
// call Ack once local processing succeeded, or after logging a payload that
// can never be parsed (so it does not redeliver forever).
type Delivery struct {
	Stream string
	ID     string
	Values map[string]any

	rdb   *redis.Client
	group string
	acked bool
}

// Decode unmarshals the flat value map into out.
func (d *Delivery) Decode(out any) error {
	return DecodeMessage(d.Values, out)
}

// Ack confirms the delivery. Idempotent.
func (d *Delivery) Ack(ctx context.Context) error {
	const op = "Delivery.Ack"
	if d.acked {
		return nil
	}
	if err := d.rdb.XAck(ctx, d.Stream, d.group, d.ID).Err(); err != nil {
		return fmt.Errorf("[%s] fail to ack message %s, err=%w", op, d.ID, err)
	}
	d.acked = true
	return nil
}

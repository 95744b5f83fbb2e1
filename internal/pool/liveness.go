package pool

import "context"

// keepAliveTable is the sentinel metadata lookup used when no
// ConnectionTestStatement is configured, matching the source's
// "BONECPKEEPALIVE" probe.
const keepAliveTable = "BONECPKEEPALIVE"

// isAlive runs the liveness probe against conn: a configured test
// statement if one is set, otherwise a metadata round trip.
// A failure to close the probe's statement downgrades an otherwise
// successful execution to a failure, matching the source's own
// close-then-AND behavior.
func (p *Pool) isAlive(ctx context.Context, conn *PooledConnection) bool {
	raw := conn.Raw()

	if stmt := p.cfg.Pool.ConnectionTestStatement; stmt != "" {
		s, err := raw.Prepare(ctx, stmt)
		if err != nil {
			return false
		}
		execErr := s.Execute(ctx)
		closeErr := s.Close()
		return execErr == nil && closeErr == nil
	}

	return raw.Tables(ctx, keepAliveTable) == nil
}

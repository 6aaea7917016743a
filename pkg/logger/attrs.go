package logger

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// instance ids look like "<hostname>-<8 hex>" so several clients on one host
// stay distinguishable
func ensureInstanceID(v string) string {
	if v != "" {
		return v
	}

	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = "client"
	}
	return hn + "-" + uuid.NewString()[:8]
}

func commonAttr(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.String("go", runtime.Version()),
		slog.Time("started_at", time.Now()),
	}
}

// Chat attribute keys, shared so that log queries work across components.
func User(id string) slog.Attr  { return slog.String("user_id", id) }
func Group(id string) slog.Attr { return slog.String("group_id", id) }
func Frame(typ string) slog.Attr {
	return slog.String("frame_type", typ)
}

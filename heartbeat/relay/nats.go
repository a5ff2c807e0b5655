package relay

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/xerrors"
)

// Connect 按配置建立 NATS 连接
func Connect(ctx context.Context, cfg *Config, logger clog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.With(clog.String("connector", "nats"), clog.String("name", cfg.Name))

	natsOpts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", clog.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", clog.String("url", c.ConnectedUrl()))
		}),
	}

	logger.InfoContext(ctx, "attempting to connect to nats", clog.String("url", cfg.URL))
	conn, err := nats.Connect(cfg.URL, natsOpts...)
	if err != nil {
		logger.ErrorContext(ctx, "failed to connect to nats", clog.String("url", cfg.URL), clog.Error(err))
		return nil, xerrors.Wrapf(err, "connect nats %s", cfg.URL)
	}
	logger.InfoContext(ctx, "successfully connected to nats", clog.String("url", cfg.URL))
	return conn, nil
}

package server

import (
	"spellbreak/config"
	"spellbreak/internal/nats"

	log "github.com/sirupsen/logrus"
)

// NewPublisher connects to NATS when enabled and returns the resource event
// publisher with a func that releases the connection.
func NewPublisher(cfg *config.NATSConfig) (nats.Publisher, func(), error) {
	if !cfg.Enabled {
		log.Info("NATS disabled, resource events are not published")
		return nats.NoopPublisher{}, func() {}, nil
	}

	nc, js, err := nats.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := nats.ConfigureStream(js, &cfg.Stream); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nats.NewJetStreamPublisher(js, cfg.SubjectPrefix), func() { nc.Drain() }, nil
}

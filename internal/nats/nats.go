package nats

import (
	"errors"
	"fmt"

	"spellbreak/config"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

func Connect(cfg *config.NATSConfig) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(cfg.Address(), nats.Name("spellbreak"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.WithFields(log.Fields{
		"address": cfg.Address(),
	}).Info("Connected to NATS")
	return nc, js, nil
}

// ConfigureStream creates the stream, or updates its subjects when it
// already exists.
func ConfigureStream(js nats.JetStreamContext, streamCfg *config.StreamConfig) error {
	sc := &nats.StreamConfig{
		Name:     streamCfg.Name,
		Subjects: streamCfg.Subjects,
	}

	_, err := js.AddStream(sc)
	if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		_, err = js.UpdateStream(sc)
	}
	if err != nil {
		return fmt.Errorf("failed to add stream: %w", err)
	}
	return nil
}

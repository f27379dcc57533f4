package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rcliao/nextstep/internal/logger"
)

const (
	// StreamName is the JetStream stream holding turn events.
	StreamName    = "NEXTSTEP_TURNS"
	subjectPrefix = "turns"
)

// Subject returns the subject an event of kind is published on.
func Subject(conversationID, kind string) string {
	return subjectPrefix + "." + conversationID + "." + kind
}

// JetStream is a Publisher backed by an embedded, in-process NATS server with
// file storage under the data directory.
type JetStream struct {
	ns     *server.Server
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	log    *logger.Logger
}

// Open starts the embedded server and ensures the turn stream exists.
func Open(ctx context.Context, dataDir string, log *logger.Logger) (*JetStream, error) {
	if log == nil {
		log = logger.Nop()
	}

	ns, err := startEmbedded(dataDir)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect in-process: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		shutdown(nc, ns)
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{subjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		shutdown(nc, ns)
		return nil, fmt.Errorf("create stream: %w", err)
	}

	log.Debug("turn log ready", "store_dir", dataDir, "stream", StreamName)
	return &JetStream{ns: ns, nc: nc, js: js, stream: stream, log: log}, nil
}

func startEmbedded(dataDir string) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		JetStream:  true,
		StoreDir:   dataDir,
		DontListen: true,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(4 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("nats server failed to start within timeout")
	}
	return ns, nil
}

// Publish stores e, filling in its ID and Time when empty. The ID doubles as
// the JetStream message id, so a retried publish is stored once.
func (j *JetStream) Publish(ctx context.Context, e Event) error {
	if e.ConversationID == "" || e.Kind == "" {
		return errors.New("publish: conversation and kind required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ack, err := j.js.Publish(ctx, Subject(e.ConversationID, e.Kind), data, jetstream.WithMsgID(e.ID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}
	j.log.Debug("turn event", "kind", e.Kind, "conversation", e.ConversationID, "seq", ack.Sequence, "duplicate", ack.Duplicate)
	return nil
}

// Replay returns the stored events of one conversation, or of all
// conversations when conversationID is empty, in publish order.
func (j *JetStream) Replay(ctx context.Context, conversationID string) ([]Event, error) {
	filter := subjectPrefix + ".>"
	if conversationID != "" {
		filter = subjectPrefix + "." + conversationID + ".>"
	}

	info, err := j.stream.Info(ctx, jetstream.WithSubjectFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("stream info: %w", err)
	}
	var pending int
	for _, n := range info.State.Subjects {
		pending += int(n)
	}
	if pending == 0 {
		return nil, nil
	}

	cons, err := j.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{filter},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}

	out := make([]Event, 0, pending)
	for len(out) < pending {
		batch, err := cons.Fetch(pending-len(out), jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return out, fmt.Errorf("fetch: %w", err)
		}
		got := 0
		for msg := range batch.Messages() {
			got++
			var e Event
			if err := json.Unmarshal(msg.Data(), &e); err != nil {
				j.log.Warn("skipping undecodable event", "subject", msg.Subject(), "error", err)
				pending--
				continue
			}
			out = append(out, e)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			return out, fmt.Errorf("fetch: %w", err)
		}
		if got == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Close drains the connection and stops the embedded server.
func (j *JetStream) Close() error {
	return shutdown(j.nc, j.ns)
}

func shutdown(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drained := make(chan error, 1)
		go func() { drained <- nc.Drain() }()
		select {
		case err := <-drained:
			if err != nil {
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()
		stopped := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			return errors.New("nats server shutdown timed out")
		}
	}
	return nil
}

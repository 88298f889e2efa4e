// Command mqttpeer is a minimal MQTT 5.0 client demonstrating how the
// example code in this module wires a real net.Conn, a session
// record store, a hook bus, and a metrics sink around one engine
// instance. It is not a required deliverable of the core: the engine
// package builds and is fully tested without anything in cmd/.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/mqttproto/core/engine"
	"github.com/mqttproto/core/hookbus"
	"github.com/mqttproto/core/internal/wireio"
	"github.com/mqttproto/core/mqttlog"
	"github.com/mqttproto/core/mqttmetrics"
	"github.com/mqttproto/core/sessionstore"
	"github.com/mqttproto/core/wire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:1883", "broker address")
	clientID := flag.String("id", "mqttpeer", "MQTT client ID")
	topic := flag.String("topic", "mqttpeer/hello", "topic to publish to")
	payload := flag.String("payload", "hello from mqttpeer", "message payload")
	keepAlive := flag.Int("keepalive", 30, "keep-alive interval in seconds")
	flag.Parse()

	logger := mqttlog.New(slog.LevelInfo, os.Stdout)

	if err := run(*addr, *clientID, *topic, *payload, uint16(*keepAlive), logger); err != nil {
		logger.Error("mqttpeer exited with error", "error", err)
		os.Exit(1)
	}
}

func run(addr, clientID, topic, payload string, keepAliveSec uint16, logger mqttlog.Logger) error {
	store := sessionstore.NewMemoryStore()
	defer store.Close()

	hooks := hookbus.NewBus()
	_ = hooks.Add(&loggingHook{id: "log", logger: logger})

	metrics := mqttmetrics.New("mqttpeer")

	ctx := context.Background()
	record, err := store.Load(ctx, clientID)
	cleanStart := err != nil || record.CleanStart

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	eng := engine.New(engine.RoleClient, engine.V5_0)
	eng.SetAutoPubResponse(true)
	eng.SetPingreqSendInterval(int64(keepAliveSec) * 1000)
	eng.SetPingrespRecvTimeout(10_000)

	pump := wireio.New(conn, eng, clientID, hooks, metrics, logger)
	go func() {
		if runErr := pump.Run(); runErr != nil {
			logger.Warn("connection loop ended", "connection", clientID, "error", runErr)
		}
	}()

	connect := engine.NewPacket(engine.V5_0, &wire.ConnectPacket{
		ProtocolName:    "MQTT",
		ProtocolVersion: wire.ProtocolVersion50,
		CleanStart:      cleanStart,
		ClientID:        clientID,
		KeepAlive:       keepAliveSec,
	})
	if err := pump.Send(connect); err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	publish := engine.NewPacket(engine.V5_0, &wire.PublishPacket{
		FixedHeader: wire.FixedHeader{Type: wire.PUBLISH, QoS: wire.QoS1},
		TopicName:   topic,
		Payload:     []byte(payload),
	})
	if err := pump.Send(publish); err != nil {
		return fmt.Errorf("send PUBLISH: %w", err)
	}

	time.Sleep(2 * time.Second)

	_ = store.Save(ctx, clientID, sessionstore.Record{
		ClientID:        clientID,
		CleanStart:      false,
		ProtocolVersion: byte(wire.ProtocolVersion50),
		LastSeenAt:      time.Now(),
	})

	disconnect := engine.NewPacket(engine.V5_0, &wire.DisconnectPacket{ReasonCode: wire.ReasonSuccess})
	if err := pump.Send(disconnect); err != nil {
		return fmt.Errorf("send DISCONNECT: %w", err)
	}
	return conn.Close()
}

// loggingHook is the simplest possible hookbus.Hook: it logs every
// event it is asked to observe and nothing more. A real deployment
// would use this point for audit logging or rate-limit bookkeeping.
type loggingHook struct {
	id     string
	logger mqttlog.Logger
}

func (h *loggingHook) ID() string { return h.id }

func (h *loggingHook) Provides(hookbus.Event) bool { return true }

func (h *loggingHook) OnPacketReceived(info hookbus.PacketInfo) {
	h.logger.Debug("packet received", "connection", info.ConnectionID, "type", info.Type, "packet_id", info.PacketID)
}

func (h *loggingHook) OnPacketSent(info hookbus.PacketInfo) {
	h.logger.Debug("packet sent", "connection", info.ConnectionID, "type", info.Type, "packet_id", info.PacketID)
}

func (h *loggingHook) OnError(connectionID string, err error) {
	h.logger.Warn("engine error", "connection", connectionID, "error", err)
}

func (h *loggingHook) OnTimerArmed(connectionID, kind string) {
	h.logger.Debug("timer armed", "connection", connectionID, "timer", kind)
}

func (h *loggingHook) OnTimerCanceled(connectionID, kind string) {
	h.logger.Debug("timer canceled", "connection", connectionID, "timer", kind)
}

func (h *loggingHook) OnPacketIDReleased(connectionID string, packetID uint16) {
	h.logger.Debug("packet id released", "connection", connectionID, "packet_id", packetID)
}

func (h *loggingHook) OnConnectionClosed(connectionID string, err error) {
	h.logger.Info("connection closed", "connection", connectionID, "error", err)
}

package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindGuardianRegistered is sent to an account that became a guardian.
	KindGuardianRegistered = "guardian_registered"
	// KindGuardianDeregistered is sent to an account that stopped being a guardian.
	KindGuardianDeregistered = "guardian_deregistered"
	// KindRecoveryNominated warns the current owner that a guardian nominated a recoverer.
	KindRecoveryNominated = "recovery_nominated"
	// KindRecoveryCancelled tells the nominee its pending recovery was withdrawn.
	KindRecoveryCancelled = "recovery_cancelled"
	// KindOwnershipClaimed tells the previous owner that ownership moved.
	KindOwnershipClaimed = "ownership_claimed"
	// KindValueReceived tells a call target it received value from a wallet.
	KindValueReceived = "value_received"
)

// Message describes a notification payload. Destination is an account address.
type Message struct {
	Kind        string
	Destination string
	Wallet      string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("wallet", message.Wallet),
		slog.String("body", message.Body),
	)
	return nil
}

// Recorder keeps every message in memory. Tests use it to assert on delivery.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of the recorded messages in delivery order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message, or the zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}
	}
	return r.messages[len(r.messages)-1]
}

// Package notifications delivers follow and comment events to figures over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

const userChannelPrefix = "notifications:user:"

// Notifier publishes figure events on per-user Redis channels. Every API instance
// subscribes to all of them, so a stream on any instance sees the event.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) disabled() bool { return n == nil || n.rdb == nil }

// PublishUser delivers event to userID's channel. Without Redis it does nothing.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	if n.disabled() {
		return nil
	}
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartPatternSubscriber listens on every user channel and hands each message to
// onMessage until ctx ends. It returns once Redis confirms the subscription.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.disabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s*: %w", userChannelPrefix, err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				dispatch(onMessage, msg)
			}
		}
	}()
	return nil
}

// dispatch keeps one bad handler call from killing the subscription.
func dispatch(onMessage func(channel, payload string), msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			observability.L().Error("notification handler panicked",
				zap.String("channel", msg.Channel),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	onMessage(msg.Channel, msg.Payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a user channel name.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

package notifications

import (
	"fmt"
	"strconv"
	"strings"

	"pariposhan/internal/models"
	"pariposhan/internal/policy"
)

// Fixed topics.
const (
	ProductsTopic   = "products"
	ModerationTopic = "moderation"
)

const (
	aggregateChannelPrefix = "aggregate:"
	userChannelPrefix      = "notifications:user:"
)

// ItemTopic carries counter and lifecycle changes for one item.
func ItemTopic(ref models.ItemRef) string {
	return fmt.Sprintf("item:%s:%d", ref.Kind, ref.ID)
}

// ThreadTopic carries comment changes for one item.
func ThreadTopic(ref models.ItemRef) string {
	return fmt.Sprintf("thread:%s:%d", ref.Kind, ref.ID)
}

// FeedTopic carries new and removed items of one kind.
func FeedTopic(kind models.ItemKind) string {
	return "feed:" + string(kind)
}

// UserChannel derives the private channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel returns the user id of a private channel.
func ParseUserChannel(topic string) (uint, bool) {
	raw, ok := strings.CutPrefix(topic, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// channelFor maps a topic onto its Redis channel. Private user channels keep
// their own name; every other topic lives under aggregate:.
func channelFor(topic string) string {
	if strings.HasPrefix(topic, userChannelPrefix) {
		return topic
	}
	return aggregateChannelPrefix + topic
}

func topicFor(channel string) string {
	return strings.TrimPrefix(channel, aggregateChannelPrefix)
}

// ValidTopic reports whether topic is one clients may name.
func ValidTopic(topic string) bool {
	switch topic {
	case ProductsTopic, ModerationTopic:
		return true
	}
	if _, ok := ParseUserChannel(topic); ok {
		return true
	}
	if kind, ok := strings.CutPrefix(topic, "feed:"); ok {
		return models.ItemKind(kind).Valid()
	}
	for _, prefix := range []string{"item:", "thread:"} {
		rest, ok := strings.CutPrefix(topic, prefix)
		if !ok {
			continue
		}
		kind, id, ok := strings.Cut(rest, ":")
		if !ok || !models.ItemKind(kind).Valid() {
			return false
		}
		n, err := strconv.ParseUint(id, 10, 64)
		return err == nil && n > 0
	}
	return false
}

// CanSubscribe applies topic visibility: the moderation queue is for
// moderators, and a private channel only for its owner.
func CanSubscribe(p policy.Principal, topic string) bool {
	if !ValidTopic(topic) {
		return false
	}
	if topic == ModerationTopic {
		return policy.CanModerate(p)
	}
	if userID, ok := ParseUserChannel(topic); ok {
		return p.UserID == userID
	}
	return true
}

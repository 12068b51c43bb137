package stream

import (
	"context"
	"strings"
	"sync"

	"backend-ofmen/internal/logging"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Hub fans out change notifications per topic. With redis configured every
// notification goes through pub/sub so all API instances see it; without it
// delivery is local only.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	log     *logrus.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Topic string
	Send  chan []byte

	once sync.Once
}

func NewHub(redisClient *redis.Client, log *logrus.Logger) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	h := &Hub{
		log:     log,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, redisPattern)
		// Wait for the subscription so nothing published afterwards is lost.
		if _, err := pubsub.Receive(ctx); err != nil {
			log.WithError(err).Warn("redis subscribe failed, change notifications are local only")
			_ = pubsub.Close()
		} else {
			h.redis = redisClient
			h.pubsub = pubsub
			go h.subscribeRedis()
		}
	}
	return h
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

// Unregister releases the client. Calling it more than once is a no-op.
func (h *Hub) Unregister(client *Client) {
	client.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if topicClients, ok := h.clients[client.Topic]; ok {
			delete(topicClients, client)
			if len(topicClients) == 0 {
				delete(h.clients, client.Topic)
			}
		}
		close(client.Send)
	})
}

// Subscribers reports how many clients are registered on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) Broadcast(topic string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(topic), payload).Err()
		if err == nil {
			return
		}
		h.log.WithError(err).WithField("topic", topic).Error("redis publish failed, delivering locally")
	}
	h.deliver(topic, payload)
}

// Close stops the redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	for msg := range h.pubsub.Channel() {
		topic := topicFromChannel(msg.Channel)
		if topic == "" {
			continue
		}
		h.deliver(topic, []byte(msg.Payload))
	}
}

const (
	channelPrefix = "ofmen:"
	channelSuffix = ":changed"
	redisPattern  = channelPrefix + "*" + channelSuffix
)

func redisChannel(topic string) string {
	return channelPrefix + topic + channelSuffix
}

func topicFromChannel(ch string) string {
	// ofmen:{topic}:changed
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}

// ProfileTopic names the notifications for one user profile document.
func ProfileTopic(userID string) string {
	return "profile:" + userID
}

// CommentsTopic names the notifications for the comment thread of a post.
func CommentsTopic(postID string) string {
	return "comments:" + postID
}

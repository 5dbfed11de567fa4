package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// ScreenChannel is the pub/sub channel carrying events for one screen.
func ScreenChannel(screenID string) string {
	return fmt.Sprintf("screen:events:%s", screenID)
}

// StoreKey is the hash holding one key-value namespace.
func StoreKey(namespace string) string {
	return fmt.Sprintf("screen:kv:%s", namespace)
}

// Package redisstore provides a Redis-backed driven.SharedTemplateStore.
//
// Each shared context owns two keys: the template document as JSON and a
// version counter. The counter is bumped in the same transaction as every
// write and its value is the change marker handed to the coordinator.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// DefaultPrefix namespaces the keys written by the store.
const DefaultPrefix = "annotate:shared"

// Ensure SharedTemplateStore implements the interface.
var _ driven.SharedTemplateStore = (*SharedTemplateStore)(nil)

// SharedTemplateStore keeps shared templates in Redis.
type SharedTemplateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSharedTemplateStore wraps an existing client. An empty prefix uses DefaultPrefix.
func NewSharedTemplateStore(client redis.UniversalClient, prefix string) *SharedTemplateStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SharedTemplateStore{client: client, prefix: prefix}
}

// Dial connects to the Redis server at addr and verifies it answers.
func Dial(ctx context.Context, addr string) (*SharedTemplateStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	logger.Debug("connected to shared template store at %s", addr)
	return NewSharedTemplateStore(client, ""), nil
}

// Close releases the underlying client.
func (s *SharedTemplateStore) Close() error {
	return s.client.Close()
}

func (s *SharedTemplateStore) templateKey(contextID string) string {
	return fmt.Sprintf("%s:%s:template", s.prefix, contextID)
}

func (s *SharedTemplateStore) versionKey(contextID string) string {
	return fmt.Sprintf("%s:%s:version", s.prefix, contextID)
}

// Get fetches the context's template and its marker. A body that is not a
// template document counts as no template.
func (s *SharedTemplateStore) Get(ctx context.Context, contextID string) (*domain.Template, string, error) {
	var body, version *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		body = pipe.Get(ctx, s.templateKey(contextID))
		version = pipe.Get(ctx, s.versionKey(contextID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("reading shared template: %w", err)
	}

	data, err := body.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading shared template: %w", err)
	}

	var doc struct {
		domain.Template
		Fields *[]domain.Field `json:"fields"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Fields == nil {
		logger.Warn("shared template of %q is not a template document; ignored", contextID)
		return nil, "", fmt.Errorf("%w: shared template of %q has no fields list", domain.ErrNotFound, contextID)
	}
	doc.Template.Fields = *doc.Fields

	marker, err := version.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("reading shared template version: %w", err)
	}
	return &doc.Template, marker, nil
}

// Save writes the context's template and returns the new marker.
func (s *SharedTemplateStore) Save(ctx context.Context, contextID string, tmpl *domain.Template) (string, error) {
	if tmpl == nil {
		return "", domain.ErrInvalidInput
	}
	data, err := json.Marshal(tmpl)
	if err != nil {
		return "", fmt.Errorf("marshalling shared template: %w", err)
	}

	var version *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.templateKey(contextID), data, 0)
		version = pipe.Incr(ctx, s.versionKey(contextID))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("writing shared template: %w", err)
	}
	return strconv.FormatInt(version.Val(), 10), nil
}

// Status returns the current marker without fetching the template.
func (s *SharedTemplateStore) Status(ctx context.Context, contextID string) (string, error) {
	marker, err := s.client.Get(ctx, s.versionKey(contextID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading shared template version: %w", err)
	}
	return marker, nil
}

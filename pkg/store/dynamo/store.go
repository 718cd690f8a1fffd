// Package dynamo implements a store.Store over a DynamoDB table with one item
// per key. Items carry the key as the string partition key, the primitive as
// a map attribute built from the internal/wire envelope, and an RFC 3339
// updated_at stamp.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goliatone/go-prefs/internal/wire"
	"github.com/goliatone/go-prefs/pkg/store"
)

// Attribute names.
const (
	AttrKey       = "key"
	AttrValue     = "value"
	AttrUpdatedAt = "updated_at"
)

// ErrTableRequired is returned by New when the table name is empty.
var ErrTableRequired = errors.New("dynamo: table name required")

// Client is the subset of *dynamodb.Client the store calls.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

type config struct {
	logger     *slog.Logger
	timeout    time.Duration
	consistent bool
	now        func() time.Time
}

// Option configures New.
type Option func(*config)

// WithLogger sets the logger used for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithTimeout bounds every request. Defaults to five seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithConsistentRead enables strongly consistent GetItem and Scan calls.
func WithConsistentRead(enabled bool) Option {
	return func(cfg *config) {
		cfg.consistent = enabled
	}
}

// WithClock overrides the updated_at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Store is a DynamoDB-backed store.Store.
type Store struct {
	client Client
	table  string
	cfg    config

	mu  sync.RWMutex
	err error
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Lister   = (*Store)(nil)
	_ store.Healther = (*Store)(nil)
)

// New wraps client for table. The table must already exist with a string
// partition key named "key".
func New(client Client, table string, opts ...Option) (*Store, error) {
	if table == "" {
		return nil, ErrTableRequired
	}
	if client == nil {
		return nil, errors.New("dynamo: client required")
	}
	cfg := config{logger: slog.Default(), timeout: 5 * time.Second, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Store{client: client, table: table, cfg: cfg}, nil
}

// Table returns the table name.
func (s *Store) Table() string {
	return s.table
}

func (s *Store) Get(key string) (store.Primitive, bool) {
	ctx, cancel := s.context()
	defer cancel()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(s.cfg.consistent),
	})
	if err != nil {
		s.fail("get", key, err)
		return nil, false
	}
	if out == nil || out.Item == nil {
		return nil, false
	}
	value, err := decodeItem(out.Item)
	if err != nil {
		s.fail("decode", key, err)
		return nil, false
	}
	return value, true
}

func (s *Store) Set(key string, value store.Primitive) {
	if value == nil {
		s.Remove(key)
		return
	}
	item, err := s.encodeItem(key, value)
	if err != nil {
		s.fail("encode", key, err)
		return
	}

	ctx, cancel := s.context()
	defer cancel()

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		s.fail("set", key, err)
		return
	}
	s.clear()
}

func (s *Store) Remove(key string) {
	ctx, cancel := s.context()
	defer cancel()

	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(key),
	}); err != nil {
		s.fail("remove", key, err)
		return
	}
	s.clear()
}

// Keys scans the table for every key, following pagination.
func (s *Store) Keys() []string {
	ctx, cancel := s.context()
	defer cancel()

	var (
		keys  []string
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(s.table),
			ProjectionExpression:     aws.String("#k"),
			ExpressionAttributeNames: map[string]string{"#k": AttrKey},
			ExclusiveStartKey:        start,
			ConsistentRead:           aws.Bool(s.cfg.consistent),
		})
		if err != nil {
			s.fail("keys", "", err)
			return nil
		}
		for _, item := range out.Items {
			if attr, ok := item[AttrKey].(*types.AttributeValueMemberS); ok {
				keys = append(keys, attr.Value)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sort.Strings(keys)
	return keys
}

// Err returns the last request failure, cleared by the next successful write.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) encodeItem(key string, value store.Primitive) (map[string]types.AttributeValue, error) {
	envelope, err := wire.Encode(value)
	if err != nil {
		return nil, err
	}
	attr, err := attributevalue.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("dynamo: marshal: %w", err)
	}
	return map[string]types.AttributeValue{
		AttrKey:       &types.AttributeValueMemberS{Value: key},
		AttrValue:     attr,
		AttrUpdatedAt: &types.AttributeValueMemberS{Value: s.cfg.now().UTC().Format(time.RFC3339Nano)},
	}, nil
}

func decodeItem(item map[string]types.AttributeValue) (store.Primitive, error) {
	attr, ok := item[AttrValue]
	if !ok {
		return nil, fmt.Errorf("dynamo: item missing %q attribute", AttrValue)
	}
	var envelope wire.Value
	if err := attributevalue.Unmarshal(attr, &envelope); err != nil {
		return nil, fmt.Errorf("dynamo: unmarshal: %w", err)
	}
	return wire.Decode(envelope)
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrKey: &types.AttributeValueMemberS{Value: key},
	}
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.timeout)
}

func (s *Store) fail(op, key string, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.cfg.logger.Warn("dynamo store request failed",
		slog.String("table", s.table),
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err),
	)
}

func (s *Store) clear() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

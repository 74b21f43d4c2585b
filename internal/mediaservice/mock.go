package mediaservice

import (
	"context"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/trendstalk/trendstalk/internal/common"
)

type MockObjectStore struct {
	mock.Mock

	mu      sync.Mutex
	Objects map[string][]byte
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: make(map[string][]byte)}
}

func (m *MockObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.Objects[key] = data
	m.mu.Unlock()

	return "http://storage.local/assets/" + key, nil
}

func (m *MockObjectStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.Objects, key)
	m.mu.Unlock()
	return nil
}

type MockMessageConsumer struct {
	mock.Mock

	Deliveries []amqp.Delivery
}

func (m *MockMessageConsumer) Consume(key common.BindingKey, exchange common.Exchange, queue common.Queue) (<-chan amqp.Delivery, error) {
	msgsChan := make(chan amqp.Delivery)

	go func() {
		defer close(msgsChan)
		for _, d := range m.Deliveries {
			msgsChan <- d
		}
	}()

	return msgsChan, nil
}

package events

import (
	"context"
	"errors"
	"sync"
)

// MemoryPublisher 使用带缓冲的 channel 暂存事件，缓冲区满时丢弃最旧的事件。
type MemoryPublisher struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// NewMemoryPublisher 创建内存事件发布器。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 256
	}
	return &MemoryPublisher{ch: make(chan Event, size)}
}

// Publish 将事件写入缓冲区。
func (p *MemoryPublisher) Publish(ctx context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("事件缓冲区已关闭")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		select {
		case p.ch <- evt:
			return nil
		default:
		}
		select {
		case <-p.ch:
		default:
		}
	}
}

// Drain 取出当前缓冲区内的全部事件。
func (p *MemoryPublisher) Drain() []Event {
	var out []Event
	for {
		select {
		case evt, ok := <-p.ch:
			if !ok {
				return out
			}
			out = append(out, evt)
		default:
			return out
		}
	}
}

// Consume 持续读取事件并交给 handler，直到上下文结束或发布器关闭。
func (p *MemoryPublisher) Consume(ctx context.Context, handler func(context.Context, Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-p.ch:
			if !ok {
				return nil
			}
			handler(ctx, evt)
		}
	}
}

// Close 关闭缓冲区。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		close(p.ch)
		p.closed = true
	}
	p.mu.Unlock()
	return nil
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

// Publish 实现 Publisher。
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close 实现 Publisher。
func (NopPublisher) Close() error { return nil }

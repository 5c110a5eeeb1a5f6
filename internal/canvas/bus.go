/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "sync"

// Subscriber is a callback invoked when an event is published.
type Subscriber func(Event)

// Bus is a synchronous in-process event bus. Publish dispatches inline on the
// caller's goroutine; Subscribe may be called from any goroutine.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]Subscriber
	order       []int
	next        int
}

func NewBus() *Bus {
	return &Bus{subscribers: map[int]Subscriber{}}
}

// Subscribe registers fn and returns a function that removes it again.
func (b *Bus) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subscribers[id] = fn
	b.order = append(b.order, id)
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every subscriber in subscription order.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.order))
	for _, id := range b.order {
		subs = append(subs, b.subscribers[id])
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe(func(Event) { got = append(got, "first") })
	unsub := b.Subscribe(func(Event) { got = append(got, "second") })
	b.Subscribe(func(Event) { got = append(got, "third") })

	b.Publish(BackRequested{})
	assert.Equal(t, []string{"first", "second", "third"}, got)

	unsub()
	unsub()
	got = nil
	b.Publish(BackRequested{})
	assert.Equal(t, []string{"first", "third"}, got)
	assert.Equal(t, 2, b.Len())
}

func TestBusSubscribeFromManyGoroutines(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Subscribe(func(Event) {})
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, b.Len())
}

func TestSubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	b := NewBus()
	calls := 0
	var unsub func()
	unsub = b.Subscribe(func(Event) {
		calls++
		unsub()
	})
	b.Publish(PageIndexChanged{Index: 1})
	b.Publish(PageIndexChanged{Index: 2})
	assert.Equal(t, 1, calls)
}

// thermal-sequence-recorder - buffered recording of thermal frame sequences
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package events

import (
	"github.com/kelindar/event"
)

// Bus broadcasts recorder events to subscribers. Delivery is asynchronous;
// a slow subscriber never blocks the publisher.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish sends ev to every subscriber of its type. A nil Bus discards it.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case StateChanged:
		event.Publish(b.dispatcher, e)
	case RecordingFinalized:
		event.Publish(b.dispatcher, e)
	case RecordingFailed:
		event.Publish(b.dispatcher, e)
	case FramesLost:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts, e.g.
// bus.Subscribe(func(e RecordingFinalized) { ... }). It returns a function
// that removes the subscription. Unknown handler types, and subscriptions
// to a nil Bus, are ignored.
func (b *Bus) Subscribe(handler interface{}) func() {
	if b == nil {
		return func() {}
	}
	switch h := handler.(type) {
	case func(StateChanged):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingFinalized):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingFailed):
		return event.Subscribe(b.dispatcher, h)
	case func(FramesLost):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

/*
Copyright 2025 The bstseal-go Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bstseal

import (
	"errors"
	"testing"
	"time"
)

func TestErrorIsMatchesSentinelByKind(t *testing.T) {
	err := NewError(KindTruncated, "some context", errors.New("underlying"))

	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("errors.Is(err, ErrTruncated) = false, want true")
	}

	if errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("errors.Is(err, ErrIntegrityMismatch) = true, want false")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(KindAllocFailure, "wrapping", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
}

type recordingListener struct {
	events []*Event
}

func (r *recordingListener) ProcessEvent(evt *Event) {
	r.events = append(r.events, evt)
}

func TestNotifyDeliversToAllListeners(t *testing.T) {
	a, b := &recordingListener{}, &recordingListener{}
	evt := NewEvent(EvtBlockEncoded, 3, 128, time.Time{})

	Notify([]Listener{a, b}, evt)

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both listeners to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}

type panickingListener struct{}

func (panickingListener) ProcessEvent(evt *Event) { panic("boom") }

func TestNotifySurvivesPanickingListener(t *testing.T) {
	ok := &recordingListener{}
	evt := NewEvent(EvtStreamEnd, 0, 0, time.Time{})

	Notify([]Listener{panickingListener{}, ok}, evt)

	if len(ok.events) != 1 {
		t.Fatalf("well-behaved listener after a panicking one did not receive the event")
	}
}

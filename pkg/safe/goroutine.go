// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package safe

import (
	"fmt"
	"runtime/debug"

	"github.com/signalops/beacon/pkg/log"
)

// Go runs f on a new goroutine. A panic is logged with the goroutine name
// instead of crashing the process.
func Go(name string, f func()) {
	go Do(name, f)
}

// Do runs f and turns a panic into a logged error returned to the caller
func Do(name string, f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
			log.Errorw("recovered from panic", "goroutine", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	f()
	return nil
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authfakes

import "sync"

// failures holds injected errors by operation name.
type failures struct {
	mu     sync.Mutex
	byName map[string]error
}

// Fail makes every later call to operation return err. A nil err clears it.
func (f *failures) Fail(operation string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byName == nil {
		f.byName = make(map[string]error)
	}
	if err == nil {
		delete(f.byName, operation)
		return
	}
	f.byName[operation] = err
}

func (f *failures) err(operation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byName[operation]
}

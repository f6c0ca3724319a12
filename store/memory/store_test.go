package memory_test

import (
	"testing"

	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/memory"
	"github.com/xraph/journal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

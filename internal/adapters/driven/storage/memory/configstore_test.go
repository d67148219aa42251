package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("ai.model", "gemini-2.5-flash"))
	require.NoError(t, store.Set("ai.model", "gemini-2.5-pro"))

	assert.Equal(t, "gemini-2.5-pro", store.GetString("ai.model"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("str", "value")
	_ = store.Set("int", 42)
	_ = store.Set("int64", int64(7))
	_ = store.Set("float", 2.5)
	_ = store.Set("bool", true)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("str"), "value"},
		{"string wrong type", store.GetString("int"), ""},
		{"int", store.GetInt("int"), 42},
		{"int from int64", store.GetInt("int64"), 7},
		{"int from float", store.GetInt("float"), 2},
		{"int wrong type", store.GetInt("str"), 0},
		{"float", store.GetFloat("float"), 2.5},
		{"float from int", store.GetFloat("int"), 42.0},
		{"float wrong type", store.GetFloat("bool"), 0.0},
		{"float missing", store.GetFloat("missing"), 0.0},
		{"bool", store.GetBool("bool"), true},
		{"bool wrong type", store.GetBool("str"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("engine.debounce_ms", 300)

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
	assert.Equal(t, 300, store.GetInt("engine.debounce_ms"))
}

func TestConfigStore_Concurrency_ReadWriteMix(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", id), id)
		}(i)
		go func(id int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", id))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key.%d", i)))
	}
}

func TestConfigStore_SetAllIsAllOrNothing(t *testing.T) {
	store := NewConfigStore()

	err := store.SetAll(map[string]any{"ai.model": "mistral", "ai.bad": []string{"x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, ok := store.Get("ai.model")
	assert.False(t, ok)

	boom := errors.New("disk full")
	store.SetFailure(boom)
	assert.ErrorIs(t, store.Set("ai.model", "mistral"), boom)
	assert.ErrorIs(t, store.Save(), boom)
	_, ok = store.Get("ai.model")
	assert.False(t, ok)

	store.SetFailure(nil)
	require.NoError(t, store.SetAll(map[string]any{"ai.model": "mistral", "engine.max_cascade_depth": 4}))
	v, _ := store.Get("engine.max_cascade_depth")
	assert.Equal(t, int64(4), v)
}

func TestConfigStore_InterfaceCompliance(t *testing.T) {
	var store driven.ConfigStore = NewConfigStore()
	require.NoError(t, store.Set("ai.rps", 1.5))
	assert.InDelta(t, 1.5, store.GetFloat("ai.rps"), 0.0001)
}

package restore

import (
	"encoding/json"

	"github.com/nektos/cache-multi/pkg/actionscore"
)

// StateProvider decides where the keys of a restore are recorded.
type StateProvider interface {
	SetState(key, value string) error
	GetState(key string) string
}

// PersistentStateProvider saves state for the post step of the same action.
type PersistentStateProvider struct {
	core *actionscore.Core
}

func NewPersistentStateProvider(core *actionscore.Core) *PersistentStateProvider {
	return &PersistentStateProvider{core: core}
}

func (p *PersistentStateProvider) SetState(key, value string) error {
	return p.core.SaveState(key, value)
}

func (p *PersistentStateProvider) GetState(key string) string {
	return p.core.GetState(key)
}

// NullStateProvider is used when there is no post step: the state is
// published as step outputs instead.
type NullStateProvider struct {
	core *actionscore.Core
}

func NewNullStateProvider(core *actionscore.Core) *NullStateProvider {
	return &NullStateProvider{core: core}
}

var stateToOutput = map[string]string{
	StateCachePrimaryKeys: OutputCachePrimaryKeys,
	StateCacheMatchedKeys: OutputCacheMatchedKeys,
}

func (p *NullStateProvider) SetState(key, value string) error {
	if output, ok := stateToOutput[key]; ok {
		return p.core.SetOutput(output, value)
	}
	return nil
}

func (p *NullStateProvider) GetState(string) string {
	return ""
}

// CacheState returns the matched keys recorded by an earlier restore, nil
// when there are none.
func CacheState(p StateProvider) ([]string, error) {
	raw := p.GetState(StateCacheMatchedKeys)
	if raw == "" {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

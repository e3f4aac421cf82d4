// Package restore restores several independent cache entries in one step:
// key i is restored into paths i, falling back to restore-keys i.
package restore

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/nektos/cache-multi/pkg/actionscore"
	"github.com/nektos/cache-multi/pkg/cache"
	"github.com/nektos/cache-multi/pkg/common"
)

// CacheService restores single entries.
type CacheService interface {
	cache.Restorer
	IsFeatureAvailable() bool
}

// Config wires a restore to the step it runs in.
type Config struct {
	Core  *actionscore.Core
	Cache CacheService
	// Parallel bounds concurrent restores, 0 restores all keys at once.
	Parallel int
	// ServerURL tells GHES apart, it defaults to GITHUB_SERVER_URL.
	ServerURL string
}

type restoreRun struct {
	cfg      Config
	provider StateProvider
	in       Inputs
	results  []string
}

// Run restores every key. Problems that leave the job usable, like a missing
// cache service or an event without a ref, are logged as warnings and the
// step succeeds.
func Run(ctx context.Context, cfg Config, provider StateProvider) error {
	r := &restoreRun{cfg: cfg, provider: provider}
	available := cfg.Cache.IsFeatureAvailable()

	return common.NewPipelineExecutor(
		common.Executor(r.reportUnavailable).IfBool(!available),
		common.Executor(r.reportInvalidEvent).IfBool(available).If(r.missingRef),
		common.NewPipelineExecutor(
			r.readKeys,
			r.readInputs,
			r.restoreAll,
			r.publish,
		).IfBool(available).If(r.hasRef),
	)(ctx)
}

func (r *restoreRun) hasRef(_ context.Context) bool {
	return r.cfg.Core.Getenv(envRef) != ""
}

func (r *restoreRun) missingRef(ctx context.Context) bool {
	return !r.hasRef(ctx)
}

func (r *restoreRun) serverURL() string {
	if r.cfg.ServerURL != "" {
		return r.cfg.ServerURL
	}
	return r.cfg.Core.Getenv(envServerURL)
}

// reportUnavailable sets a miss for every key that can be read.
func (r *restoreRun) reportUnavailable(_ context.Context) error {
	if err := setUnavailableOutputs(r.cfg.Core); err != nil {
		return err
	}
	return common.Warning{Message: unavailableMessage(IsGhes(r.serverURL()))}
}

func (r *restoreRun) reportInvalidEvent(_ context.Context) error {
	return common.Warningf("Event Validation Error: The event type %s is not supported because it's not tied to a branch or tag ref.", r.cfg.Core.Getenv(envEventName))
}

// readKeys saves the primary keys before anything else can fail, the save
// step needs them.
func (r *restoreRun) readKeys(_ context.Context) error {
	rawKeys, err := r.cfg.Core.GetInput(InputKeys, actionscore.InputOptions{Required: true})
	if err != nil {
		return err
	}
	if r.in.Keys, err = parseList(InputKeys, rawKeys); err != nil {
		return err
	}

	primaryKeys, err := toJSON(r.in.Keys)
	if err != nil {
		return err
	}
	return r.provider.SetState(StateCachePrimaryKeys, primaryKeys)
}

func (r *restoreRun) readInputs(_ context.Context) error {
	if err := readInputs(r.cfg.Core, &r.in); err != nil {
		return err
	}
	return r.in.validate()
}

// restoreAll restores each key concurrently and records the matched key per
// index, empty for a miss.
func (r *restoreRun) restoreAll(ctx context.Context) error {
	in := &r.in
	results := make([]string, len(in.Keys))
	executors := make([]common.Executor, 0, len(in.Keys))
	opts := &cache.DownloadOptions{LookupOnly: in.LookupOnly}

	for i, key := range in.Keys {
		executors = append(executors, common.NewFieldExecutor("key", key, func(ctx context.Context) error {
			matched, err := r.cfg.Cache.RestoreCache(ctx, in.Paths[i], key, in.restoreKeys(i), opts, in.EnableCrossOsArchive)
			if err != nil {
				return err
			}
			results[i] = matched
			return nil
		}))
	}

	parallel := r.cfg.Parallel
	if parallel <= 0 {
		parallel = len(executors)
	}
	if err := common.NewParallelExecutor(parallel, executors...)(ctx); err != nil {
		return err
	}
	r.results = results
	return nil
}

// publish reports misses, then hands the matched keys to outputs and state.
func (r *restoreRun) publish(ctx context.Context) error {
	logger := common.Logger(ctx)
	in := &r.in

	var matched []string
	var hits []bool
	for i, key := range r.results {
		if key == "" {
			if in.FailOnCacheMiss {
				return errors.Errorf("Failed to restore cache entry. Exiting as fail-on-cache-miss is set. Input key: %s", in.Keys[i])
			}
			logger.Infof("Cache not found for input keys: %s", strings.Join(append([]string{in.Keys[i]}, in.restoreKeys(i)...), ", "))
			continue
		}
		matched = append(matched, key)
		hits = append(hits, isExactKeyMatch(in.Keys[i], key))
	}

	if len(matched) == 0 {
		return nil
	}

	matchedKeys, err := toJSON(matched)
	if err != nil {
		return err
	}
	if err := r.provider.SetState(StateCacheMatchedKeys, matchedKeys); err != nil {
		return err
	}
	cacheHits, err := toJSON(hits)
	if err != nil {
		return err
	}
	if err := r.cfg.Core.SetOutput(OutputCacheHits, cacheHits); err != nil {
		return err
	}

	if in.LookupOnly {
		logger.Infof("Cache(s) found and can be restored from keys: \n%s", matchedKeys)
	} else {
		logger.Infof("Cache(s) restored from keys: \n%s", matchedKeys)
	}
	return nil
}

// readInputs reads every input but the keys.
func readInputs(core *actionscore.Core, in *Inputs) error {
	rawPaths, err := core.GetInput(InputPaths, actionscore.InputOptions{Required: true})
	if err != nil {
		return err
	}
	if in.Paths, err = parseListOfLists(InputPaths, rawPaths); err != nil {
		return err
	}

	rawRestoreKeys, err := core.GetInput(InputRestoreKeys, actionscore.InputOptions{})
	if err != nil {
		return err
	}
	if in.RestoreKeys, err = parseListOfLists(InputRestoreKeys, rawRestoreKeys); err != nil {
		return err
	}

	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{InputEnableCrossOsArchive, &in.EnableCrossOsArchive},
		{InputFailOnCacheMiss, &in.FailOnCacheMiss},
		{InputLookupOnly, &in.LookupOnly},
	} {
		if *b.dst, err = booleanInput(core, b.name); err != nil {
			return err
		}
	}
	return nil
}

// booleanInput treats an unset input as false.
func booleanInput(core *actionscore.Core, name string) (bool, error) {
	if v, _ := core.GetInput(name, actionscore.InputOptions{}); v == "" {
		return false, nil
	}
	return core.GetBooleanInput(name, actionscore.InputOptions{})
}

// setUnavailableOutputs reports a miss for every key that can be read.
func setUnavailableOutputs(core *actionscore.Core) error {
	hits := []bool{false}
	if raw, err := core.GetInput(InputKeys, actionscore.InputOptions{}); err == nil && raw != "" {
		if keys, err := parseList(InputKeys, raw); err == nil && len(keys) > 0 {
			hits = make([]bool, len(keys))
		}
	}
	value, err := toJSON(hits)
	if err != nil {
		return err
	}
	if err := core.SetOutput(OutputCacheHits, value); err != nil {
		return fmt.Errorf("set %s: %w", OutputCacheHits, err)
	}
	return nil
}

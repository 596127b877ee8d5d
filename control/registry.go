package control

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/pursuit/logging"
)

// Constructor creates an unconfigured controller.
type Constructor func(name string, logger logging.Logger) Controller

var (
	registryMu         sync.RWMutex
	controllerRegistry = map[string]Constructor{}
)

// RegisterController registers a controller model. Registering a model twice panics.
func RegisterController(model string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := controllerRegistry[model]; old {
		panic(fmt.Errorf("controller model [%s] already registered", model))
	}
	if constructor == nil {
		panic(fmt.Errorf("cannot register a nil constructor for controller model [%s]", model))
	}
	controllerRegistry[model] = constructor
}

// NewController creates an unconfigured controller of the given model.
func NewController(model, name string, logger logging.Logger) (Controller, error) {
	registryMu.RLock()
	constructor, have := controllerRegistry[model]
	registryMu.RUnlock()
	if !have {
		return nil, errors.Errorf("unknown controller model: %v", model)
	}
	return constructor(name, logger), nil
}

// RegisteredModels returns the registered model names, sorted.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := lo.Keys(controllerRegistry)
	sort.Strings(models)
	return models
}

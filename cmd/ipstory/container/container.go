package container

import (
	"fmt"

	"github.com/nettrail/ipstory/cmd/ipstory/repository"
	"github.com/nettrail/ipstory/cmd/ipstory/service"
	"github.com/nettrail/ipstory/common/bootstrap"
	"github.com/nettrail/ipstory/common/config"
)

// Container holds all initialized services and stores (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	// Stores
	StoryStore repository.StoryStore

	// Services
	Stories *service.StoryService
}

// NewContainer initializes all services and stores once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	var store repository.StoryStore
	switch components.Config.Storage.Backend {
	case config.BackendRedis:
		store = repository.NewRedisStoryStore(components.Redis)
	case config.BackendPostgres:
		store = repository.NewPostgresStoryStore(components.DB)
	case config.BackendMemory:
		store = repository.NewMemoryStoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", components.Config.Storage.Backend)
	}

	log := components.Logger.WithFields(map[string]any{"component": "stories"})
	stories := service.NewStoryService(store, log)

	return &Container{
		Components: components,
		StoryStore: store,
		Stories:    stories,
	}, nil
}

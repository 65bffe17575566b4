package datasource

import (
	"context"

	"go.uber.org/zap"

	"field-equipment/internal/repositories"
	"field-equipment/internal/repositories/fixture"
	"field-equipment/pkg/config"
)

// FixtureProvider держит все данные в памяти процесса.
type FixtureProvider struct {
	opts []fixture.Option
}

func NewFixtureProvider(opts ...fixture.Option) *FixtureProvider {
	return &FixtureProvider{opts: opts}
}

func (p *FixtureProvider) Name() string {
	return config.DataSourceFixture
}

func (p *FixtureProvider) Open(_ context.Context, logger *zap.Logger) (*repositories.Set, func(), error) {
	logger.Warn("Используется хранилище в памяти (DATA_SOURCE=fixture), данные не сохраняются")
	return fixture.NewStore(p.opts...).Set(), func() {}, nil
}

// NewDefaultRegistry регистрирует оба источника и делает активным выбранный в конфиге.
func NewDefaultRegistry(cfg *config.Config) (RegistryInterface, error) {
	registry := NewRegistry()
	for _, provider := range []Provider{NewPostgresProvider(cfg), NewFixtureProvider()} {
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}
	if err := registry.SetActive(cfg.Equipment.DataSource); err != nil {
		return nil, err
	}
	return registry, nil
}

package tariffs

import "context"

type (
	Storage interface {
		CreateTariff(ctx context.Context, tariff Tariff) (*Tariff, error)
		GetTariff(ctx context.Context, id int64) (*Tariff, error)
		ListTariffs(ctx context.Context, criteria ListCriteria) ([]*Tariff, error)
	}
)

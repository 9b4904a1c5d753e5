package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/runtime Strategy
//go:generate mockgen -destination=./mock_cache.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/cache Cache
//go:generate mockgen -destination=./mock_commission.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/commission Model

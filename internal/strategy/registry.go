package strategy

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

var builtins = map[string]func() runtime.Strategy{
	"ema_cross": func() runtime.Strategy { return NewEMACross() },
	"sma_cross": func() runtime.Strategy { return NewSMACross() },
}

// Lookup returns a fresh instance of the named builtin strategy.
func Lookup(name string) (runtime.Strategy, error) {
	factory, ok := builtins[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNoStrategy, "unknown strategy: %s", name)
	}

	return factory(), nil
}

// Names lists the builtin strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

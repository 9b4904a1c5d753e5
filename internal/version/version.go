package version

import (
	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// EngineVersion is the engine API version strategies pin against.
const EngineVersion = "1.0.0"

// CheckCompatibility verifies that the engine satisfies a strategy's pinned
// version: same major, engine at least the required version. An empty
// requirement always passes.
func CheckCompatibility(required string) error {
	if required == "" {
		return nil
	}

	req, err := semver.NewVersion(required)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid engine_version requirement %q", required)
	}

	current := semver.MustParse(EngineVersion)

	if req.Major() != current.Major() || current.LessThan(req) {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"strategy requires engine %s, running %s", required, EngineVersion)
	}

	return nil
}
